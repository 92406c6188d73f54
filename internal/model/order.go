package model

import "time"

// OrderStatus is the lifecycle state of a production order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAssigned  OrderStatus = "assigned"
	OrderRunning   OrderStatus = "running"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Active reports whether the order still occupies a machine slot.
func (s OrderStatus) Active() bool {
	return s != OrderCompleted && s != OrderCancelled
}

// ProductionOrder tracks required versus completed quantity for one order.
// QuantityCompleted changes only through production-log accounting.
type ProductionOrder struct {
	OrderNumber       string      `gorm:"primaryKey;size:64" json:"orderNumber"`
	PartNumber        string      `gorm:"size:64;not null" json:"partNumber"`
	QuantityRequired  int         `gorm:"not null" json:"quantityRequired"`
	QuantityCompleted int         `gorm:"not null;default:0" json:"quantityCompleted"`
	MachineID         *int        `json:"machineId"`
	Status            OrderStatus `gorm:"size:16;not null;default:pending" json:"status"`
	DueDate           *time.Time  `json:"dueDate"`
	TargetCycleTime   *float64    `json:"targetCycleTime"`
	TargetUtilization *float64    `json:"targetUtilization"`
	Notes             *string     `json:"notes"`
	StartedAt         *time.Time  `json:"startedAt"`
	CompletedAt       *time.Time  `json:"completedAt"`
	CreatedAt         time.Time   `json:"createdAt"`
}
