package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"shopfloor-status-backend/config"
	"shopfloor-status-backend/internal/model"
	"shopfloor-status-backend/internal/mw"
)

// NewRouter creates and configures the Gin router.
func NewRouter(h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AddAllowHeaders("Authorization", "X-API-Key")
	r.Use(cors.New(corsConfig))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	jwtAuth := mw.JWTAuth(cfg.Auth.JWTSecret)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Device ingestion, shared-key authenticated.
		api.POST("/status", mw.DeviceKey(cfg.Auth.DeviceAPIKey), h.PostStatus)

		auth := api.Group("/auth")
		{
			auth.POST("/login", h.PostLogin)
			auth.GET("/me", jwtAuth, h.GetMe)
		}

		machines := api.Group("/machines")
		{
			machines.GET("", h.GetMachines)
			machines.GET("/:id", h.GetMachine)
			machines.POST("", jwtAuth, mw.RequireRole(model.RoleAdmin), h.PostMachine)
			machines.PUT("/:id", jwtAuth, mw.RequireRole(model.RoleAdmin), h.PutMachine)
			machines.DELETE("/:id", jwtAuth, mw.RequireRole(model.RoleAdmin), h.DeleteMachine)
			machines.POST("/:id/config", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PostMachineConfig)
			machines.POST("/:id/manual-status", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RoleLineLeader), h.PostManualStatus)
			machines.POST("/:id/input-mode", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RoleLineLeader), h.PostInputMode)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", h.GetOrders)
			orders.GET("/available", h.GetAvailableOrders)
			orders.POST("", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PostOrder)
			orders.POST("/bulk-import", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PostOrderImport)
			orders.POST("/:orderNumber/assign", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PostOrderAssign)
			orders.PATCH("/:orderNumber", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PatchOrder)
			orders.DELETE("/:orderNumber", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.DeleteOrder)
		}

		logs := api.Group("/production-logs")
		{
			logs.GET("", h.GetProductionLogs)
			logs.GET("/today-summary", h.GetTodayProductionSummary)
			logs.POST("", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner, model.RoleLineLeader), h.PostProductionLog)
			logs.PATCH("/:id", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner, model.RoleLineLeader), h.PatchProductionLog)
		}

		parts := api.Group("/parts")
		{
			parts.GET("", caching, h.GetParts)
			parts.GET("/:partNumber", h.GetPart)
			parts.POST("", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PostPart)
			parts.PATCH("/:partNumber", jwtAuth, mw.RequireRole(model.RoleAdmin, model.RolePlanner), h.PatchPart)
			parts.DELETE("/:partNumber", jwtAuth, mw.RequireRole(model.RoleAdmin), h.DeletePart)
		}

		shifts := api.Group("/shifts")
		{
			shifts.GET("", caching, h.GetShifts)
			shifts.GET("/current", h.GetCurrentShift)
		}

		// Liveness-bearing reads, never cached.
		api.GET("/summary", h.GetSummary)
		api.GET("/events", h.GetEvents)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
