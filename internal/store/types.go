package store

import (
	"time"

	"shopfloor-status-backend/internal/model"
)

// Heartbeat is one status report from a machine-mounted device.
type Heartbeat struct {
	MachineID   int                 `json:"machineId"`
	MachineName string              `json:"machineName"`
	Status      model.MachineStatus `json:"status"`
	Green       bool                `json:"green"`
	Red         bool                `json:"red"`
	CycleCount  int                 `json:"cycleCount"`
	UptimeSec   *int                `json:"uptimeSec"`
}

// ManualStatus is a line leader's status command for a manual-mode machine.
type ManualStatus struct {
	Status     model.MachineStatus
	UpdatedBy  string
	CycleCount *int
}

// HeartbeatResult reports what an accepted status write did.
type HeartbeatResult struct {
	Machine *model.Machine
	// FaultTransition is set when the write moved the machine into fault
	// from some other status; the caller dispatches alerts on it.
	FaultTransition bool
	// CycleReset is set when the reported cycle count is lower than the
	// stored one, which starts a new production-run context.
	CycleReset bool
}

// AssignmentResult is the machine configuration applied by order assignment.
type AssignmentResult struct {
	ProductionOrder *string  `json:"productionOrder"`
	PartNumber      *string  `json:"partNumber"`
	PartName        *string  `json:"partName"`
	TargetCycleTime *float64 `json:"targetCycleTime"`
	PartsPerCycle   int      `json:"partsPerCycle"`
}

// MachineRow is a registry row joined with its assigned order's quantities.
type MachineRow struct {
	model.Machine
	QuantityRequired  *int `json:"quantityRequired"`
	QuantityCompleted *int `json:"quantityCompleted"`
}

// OrderRow is a ledger row joined with part, machine and capability data.
type OrderRow struct {
	Order       model.ProductionOrder `json:"order"`
	PartName    *string               `json:"partName"`
	MachineName *string               `json:"machineName"`
	CavityPlan  *int                  `json:"cavityPlan"`
}

// OrderImport is one row of a bulk order import.
type OrderImport struct {
	OrderNumber string `json:"orderNumber"`
	PartNumber  string `json:"partNumber"`
	Quantity    int    `json:"quantity"`
}

// ImportResult summarizes a bulk order import.
type ImportResult struct {
	Imported           int      `json:"imported"`
	SkippedDuplicates  []string `json:"skippedDuplicates"`
	DuplicatesInImport []string `json:"duplicatesInImport"`
}

// AvailableOrder is an assignable order with its part name.
type AvailableOrder struct {
	OrderNumber       string            `json:"orderNumber"`
	PartNumber        string            `json:"partNumber"`
	PartName          *string           `json:"partName"`
	QuantityRequired  int               `json:"quantityRequired"`
	QuantityCompleted int               `json:"quantityCompleted"`
	Status            model.OrderStatus `json:"status"`
}

// PartGroup summarizes the open orders for one part.
type PartGroup struct {
	PartNumber  string  `json:"partNumber"`
	PartName    *string `json:"partName"`
	LowestOrder string  `json:"lowestOrder"`
	OrderCount  int     `json:"orderCount"`
}

// AvailableOrders is the assignment picker payload: the flat list, the
// per-part grouping, and the part-to-machine compatibility map. The
// compatibility map filters only this read path; assignment itself is
// deliberately permissive.
type AvailableOrders struct {
	Orders        []AvailableOrder `json:"orders"`
	ByPart        []PartGroup      `json:"byPart"`
	Compatibility map[string][]int `json:"compatibility"`
}

// ProductionLogInput creates a production log entry. MachineID, OrderNumber,
// ShiftID and ShiftDate are required correlation fields.
type ProductionLogInput struct {
	MachineID        int
	OrderNumber      string
	ShiftID          int
	ShiftDate        time.Time
	QuantityProduced int
	QuantityScrap    int
	StartedAt        *time.Time
	EndedAt          *time.Time
	Status           string
	LoggedBy         *string
	Notes            *string
}

// ProductionLogUpdate edits a production log entry; nil fields are left
// untouched. Quantity changes are applied to the order as deltas.
type ProductionLogUpdate struct {
	QuantityProduced *int
	QuantityScrap    *int
	StartedAt        *time.Time
	EndedAt          *time.Time
	Status           *string
	Notes            *string
}

// ProductionLogFilter narrows a production log listing.
type ProductionLogFilter struct {
	MachineID   *int
	ShiftDate   *time.Time
	OrderNumber *string
}

// ProductionLogRow is a log entry joined with its correlated names.
type ProductionLogRow struct {
	Log              model.ProductionLog `json:"log"`
	MachineName      *string             `json:"machineName"`
	PartName         *string             `json:"partName"`
	ShiftName        *string             `json:"shiftName"`
	QuantityRequired *int                `json:"quantityRequired"`
}

// ProductionSummaryRow aggregates one machine's output for a day.
type ProductionSummaryRow struct {
	MachineID     int `json:"machineId"`
	TotalProduced int `json:"totalProduced"`
	TotalScrap    int `json:"totalScrap"`
}

// PartRow is a catalog row with the machines qualified for the part.
type PartRow struct {
	model.Part
	CompatibleMachines []string `json:"compatibleMachines"`
	MachineIDs         []int    `json:"machineIds"`
}

// PartDetail is a single part with its capability rows.
type PartDetail struct {
	model.Part
	Machines []model.MachinePart `json:"machines"`
}
