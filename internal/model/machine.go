package model

import "time"

// MachineStatus is the reported operating state of an injection-molding machine.
type MachineStatus string

const (
	StatusRunning MachineStatus = "running"
	StatusIdle    MachineStatus = "idle"
	StatusFault   MachineStatus = "fault"
	StatusOffline MachineStatus = "offline"
)

// ValidStatus reports whether s is one of the recognized machine statuses.
func ValidStatus(s MachineStatus) bool {
	switch s {
	case StatusRunning, StatusIdle, StatusFault, StatusOffline:
		return true
	}
	return false
}

// InputMode selects which writer drives a machine's runtime status: the
// machine-mounted device (auto) or a line leader (manual).
type InputMode string

const (
	InputModeAuto   InputMode = "auto"
	InputModeManual InputMode = "manual"
)

// Machine represents one press on the shop floor. Runtime fields (status,
// lamps, cycle count, last_seen) are owned by the ingestion paths; the
// specification fields are admin-managed and static.
type Machine struct {
	MachineID   int           `gorm:"primaryKey;column:machine_id" json:"machineId"`
	MachineName string        `gorm:"size:128;not null" json:"machineName"`
	Status      MachineStatus `gorm:"size:16;not null;default:offline" json:"status"`
	Green       bool          `json:"green"`
	Red         bool          `json:"red"`
	CycleCount  int           `json:"cycleCount"`

	InputMode       InputMode `gorm:"size:8;not null;default:auto" json:"inputMode"`
	StatusUpdatedBy *string   `gorm:"size:64" json:"statusUpdatedBy"`

	// Current production assignment, auto-filled from the order and the
	// machine-part capability row on assignment.
	ProductionOrder *string  `gorm:"size:64;index" json:"productionOrder"`
	PartNumber      *string  `gorm:"size:64" json:"partNumber"`
	PartName        *string  `gorm:"size:128" json:"partName"`
	TargetCycleTime *float64 `json:"targetCycleTime"`
	PartsPerCycle   int      `gorm:"not null;default:1" json:"partsPerCycle"`

	// Static specification.
	Brand           *string  `gorm:"size:64" json:"brand"`
	Model           *string  `gorm:"size:64" json:"model"`
	SerialNo        *string  `gorm:"size:64" json:"serialNo"`
	Tonnage         *int     `json:"tonnage"`
	ScrewDiameter   *float64 `json:"screwDiameter"`
	InjectionWeight *float64 `json:"injectionWeight"`
	Is2K            bool     `gorm:"column:is_2k" json:"is2K"`

	FloorRow      *string `gorm:"size:16" json:"floorRow"`
	FloorPosition *int    `json:"floorPosition"`

	LastSeen  *time.Time `json:"lastSeen"`
	CreatedAt time.Time  `json:"createdAt"`
}
