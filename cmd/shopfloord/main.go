package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfloor-status-backend/config"
	"shopfloor-status-backend/internal/api"
	"shopfloor-status-backend/internal/db"
	"shopfloor-status-backend/internal/notification"
	"shopfloor-status-backend/internal/publisher"
	"shopfloor-status-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Infof("configuration loaded from %s", configPath)

	if cfg.Auth.DeviceAPIKey == "" {
		logger.Fatal("auth.device_api_key must be configured")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be configured")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn("VAPID keys not configured, fault alerts disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	pub := publisher.New(appStore, cfg.Publisher.Interval, cfg.Liveness.OfflineThreshold, logger, nil)
	go pub.Run(ctx)

	var alerts *notification.WorkerPool
	if webpushOptions != nil {
		alerts = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		alerts.Start(ctx)
	}

	handler := api.NewHandler(api.HandlerOptions{
		Store:            appStore,
		Publisher:        pub,
		Alerts:           alerts,
		Webpush:          webpushOptions,
		Log:              logger,
		OfflineThreshold: cfg.Liveness.OfflineThreshold,
		JWTSecret:        cfg.Auth.JWTSecret,
		TokenTTL:         time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		DebugErrors:      cfg.Server.DebugErrors,
	})

	router := api.NewRouter(handler, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Info("server gracefully stopped")
}
