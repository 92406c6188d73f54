package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"shopfloor-status-backend/internal/notification"
	"shopfloor-status-backend/internal/publisher"
	"shopfloor-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store            store.Store
	publisher        *publisher.Publisher
	alerts           *notification.WorkerPool
	webpush          *webpush.Options
	log              *logrus.Logger
	offlineThreshold time.Duration
	jwtSecret        string
	tokenTTL         time.Duration
	debugErrors      bool

	// now is injectable for tests.
	now func() time.Time
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Store            store.Store
	Publisher        *publisher.Publisher
	Alerts           *notification.WorkerPool
	Webpush          *webpush.Options
	Log              *logrus.Logger
	OfflineThreshold time.Duration
	JWTSecret        string
	TokenTTL         time.Duration
	DebugErrors      bool
	Now              func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	return &Handler{
		store:            opts.Store,
		publisher:        opts.Publisher,
		alerts:           opts.Alerts,
		webpush:          opts.Webpush,
		log:              opts.Log,
		offlineThreshold: opts.OfflineThreshold,
		jwtSecret:        opts.JWTSecret,
		tokenTTL:         opts.TokenTTL,
		debugErrors:      opts.DebugErrors,
		now:              opts.Now,
	}
}

// dispatchFaultAlert queues a fault notification when a status write moved
// the machine into fault and the alert pool is wired.
func (h *Handler) dispatchFaultAlert(res *store.HeartbeatResult, machineID int) {
	if h.alerts != nil && res != nil && res.FaultTransition {
		h.alerts.Dispatch(machineID)
	}
}
