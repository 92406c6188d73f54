package model

import "time"

// StatusLog is the append-only audit trail of accepted status transitions.
// Rows are never updated; they are removed only when their machine is deleted.
type StatusLog struct {
	ID         int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID  int           `gorm:"not null;index" json:"machineId"`
	Status     MachineStatus `gorm:"size:16;not null" json:"status"`
	CycleCount int           `json:"cycleCount"`
	Timestamp  time.Time     `gorm:"autoCreateTime" json:"timestamp"`
}
