package model

import "time"

// ProductionLog records the output of one machine on one order within a
// shift context. Quantity edits are reconciled against the previous value of
// the same row, never applied as blind overwrites.
type ProductionLog struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID        int        `gorm:"not null;index" json:"machineId"`
	OrderNumber      string     `gorm:"size:64;not null;index" json:"orderNumber"`
	ShiftID          int        `gorm:"not null" json:"shiftId"`
	ShiftDate        time.Time  `gorm:"not null;index" json:"shiftDate"`
	QuantityProduced int        `gorm:"not null;default:0" json:"quantityProduced"`
	QuantityScrap    int        `gorm:"not null;default:0" json:"quantityScrap"`
	StartedAt        *time.Time `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt"`
	Status           string     `gorm:"size:16;not null;default:in_progress" json:"status"`
	LoggedBy         *string    `gorm:"size:64" json:"loggedBy"`
	Notes            *string    `json:"notes"`
	CreatedAt        time.Time  `json:"createdAt"`
}
