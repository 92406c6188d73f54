package model

import "time"

// Part is a catalog entry for a moldable part.
type Part struct {
	PartNumber  string    `gorm:"primaryKey;size:64" json:"partNumber"`
	PartName    string    `gorm:"size:128;not null" json:"partName"`
	ProductLine *string   `gorm:"size:64" json:"productLine"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MachinePart qualifies a machine for a part. The optional cycle time and
// cavity plan are performance hints consumed by assignment auto-fill; the
// absence of a row does not block assignment.
type MachinePart struct {
	ID              int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MachineID       int      `gorm:"not null;uniqueIndex:idx_machine_part" json:"machineId"`
	PartNumber      string   `gorm:"size:64;not null;uniqueIndex:idx_machine_part" json:"partNumber"`
	CavityPlan      int      `gorm:"not null;default:1" json:"cavityPlan"`
	TargetCycleTime *float64 `json:"targetCycleTime"`
}
