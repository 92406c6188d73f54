package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// Store defines the database operations of the reconciliation engine and
// its administrative surface.
type Store interface {
	// Heartbeat and command ingestion.
	ApplyHeartbeat(ctx context.Context, hb Heartbeat, receivedAt time.Time) (*HeartbeatResult, error)
	SetManualStatus(ctx context.Context, machineID int, cmd ManualStatus, now time.Time) (*HeartbeatResult, error)
	SetInputMode(ctx context.Context, machineID int, mode model.InputMode) error
	AssignOrder(ctx context.Context, machineID int, orderNumber *string) (*AssignmentResult, error)

	// Machine registry.
	GetMachine(ctx context.Context, machineID int) (*model.Machine, error)
	ListMachines(ctx context.Context) ([]MachineRow, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	UpdateMachine(ctx context.Context, machineID int, updates map[string]any) (*model.Machine, error)
	DeleteMachine(ctx context.Context, machineID int) (string, error)

	// Order ledger.
	CreateOrder(ctx context.Context, o *model.ProductionOrder) error
	ImportOrders(ctx context.Context, orders []OrderImport) (*ImportResult, error)
	ListOrders(ctx context.Context) ([]OrderRow, error)
	AvailableOrders(ctx context.Context) (*AvailableOrders, error)
	UpdateOrder(ctx context.Context, orderNumber string, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderNumber string) error

	// Production logging.
	CreateProductionLog(ctx context.Context, in ProductionLogInput) (*model.ProductionLog, error)
	UpdateProductionLog(ctx context.Context, id int64, updates ProductionLogUpdate) (*model.ProductionLog, error)
	ListProductionLogs(ctx context.Context, f ProductionLogFilter) ([]ProductionLogRow, error)
	TodayProductionSummary(ctx context.Context, today time.Time) ([]ProductionSummaryRow, error)

	// Part and capability catalog.
	ListParts(ctx context.Context) ([]PartRow, error)
	GetPart(ctx context.Context, partNumber string) (*PartDetail, error)
	CreatePart(ctx context.Context, p *model.Part, machineIDs []int) error
	UpdatePart(ctx context.Context, partNumber string, updates map[string]any, machineIDs []int) error
	DeletePart(ctx context.Context, partNumber string) error

	// Shift context and accounts.
	ListShifts(ctx context.Context) ([]model.Shift, error)
	CurrentShift(ctx context.Context, now time.Time) (*model.Shift, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID int, now time.Time) error

	// DB exposes the underlying handle for collaborators that manage
	// their own queries (subscription handlers, notification worker).
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}
