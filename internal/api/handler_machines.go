package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/liveness"
	"shopfloor-status-backend/internal/model"
	"shopfloor-status-backend/internal/store"
)

// machineResponse is a registry row with the liveness overlay applied.
type machineResponse struct {
	store.MachineRow
	SecondsSinceSeen *int64 `json:"secondsSinceSeen"`
}

func machineIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machine id"})
		return 0, false
	}
	return id, true
}

// GetMachines handles GET /api/machines.
func (h *Handler) GetMachines(c *gin.Context) {
	rows, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	now := h.now()
	response := make([]machineResponse, 0, len(rows))
	for _, row := range rows {
		row.Status = liveness.DisplayedStatus(row.Status, row.LastSeen, now, h.offlineThreshold)
		response = append(response, machineResponse{
			MachineRow:       row,
			SecondsSinceSeen: liveness.SecondsSinceSeen(row.LastSeen, now),
		})
	}
	c.JSON(http.StatusOK, response)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}
	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	now := h.now()
	m.Status = liveness.DisplayedStatus(m.Status, m.LastSeen, now, h.offlineThreshold)
	c.JSON(http.StatusOK, gin.H{
		"machine":          m,
		"secondsSinceSeen": liveness.SecondsSinceSeen(m.LastSeen, now),
	})
}

type manualStatusRequest struct {
	Status     model.MachineStatus `json:"status" binding:"required"`
	UpdatedBy  string              `json:"updatedBy" binding:"required"`
	CycleCount *int                `json:"cycleCount"`
}

// PostManualStatus handles POST /api/machines/:id/manual-status.
func (h *Handler) PostManualStatus(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}
	var req manualStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.store.SetManualStatus(c.Request.Context(), id, store.ManualStatus{
		Status:     req.Status,
		UpdatedBy:  req.UpdatedBy,
		CycleCount: req.CycleCount,
	}, h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.dispatchFaultAlert(res, id)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type inputModeRequest struct {
	Mode model.InputMode `json:"mode" binding:"required"`
}

// PostInputMode handles POST /api/machines/:id/input-mode.
func (h *Handler) PostInputMode(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}
	var req inputModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetInputMode(c.Request.Context(), id, req.Mode); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": req.Mode})
}

type machineConfigRequest struct {
	ProductionOrder *string `json:"productionOrder"`
}

// PostMachineConfig handles POST /api/machines/:id/config: assigning or
// clearing the machine's production order with auto-filled part data.
func (h *Handler) PostMachineConfig(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}
	var req machineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.store.AssignOrder(c.Request.Context(), id, req.ProductionOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": applied})
}

type machineRequest struct {
	MachineName     string   `json:"machineName" binding:"required"`
	Brand           *string  `json:"brand"`
	Model           *string  `json:"model"`
	SerialNo        *string  `json:"serialNo"`
	Tonnage         *int     `json:"tonnage"`
	ScrewDiameter   *float64 `json:"screwDiameter"`
	InjectionWeight *float64 `json:"injectionWeight"`
	Is2K            bool     `json:"is2K"`
	FloorRow        *string  `json:"floorRow"`
	FloorPosition   *int     `json:"floorPosition"`
	InputMode       *string  `json:"inputMode"`
}

// PostMachine handles POST /api/machines (admin creation).
func (h *Handler) PostMachine(c *gin.Context) {
	var req machineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := model.Machine{
		MachineName:     req.MachineName,
		Brand:           req.Brand,
		Model:           req.Model,
		SerialNo:        req.SerialNo,
		Tonnage:         req.Tonnage,
		ScrewDiameter:   req.ScrewDiameter,
		InjectionWeight: req.InjectionWeight,
		Is2K:            req.Is2K,
		FloorRow:        req.FloorRow,
		FloorPosition:   req.FloorPosition,
	}
	if req.InputMode != nil {
		m.InputMode = model.InputMode(*req.InputMode)
	}

	if err := h.store.CreateMachine(c.Request.Context(), &m); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// PutMachine handles PUT /api/machines/:id (admin update of static fields).
func (h *Handler) PutMachine(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Only static/config fields may be patched here; runtime fields are
	// owned by the ingestion paths.
	allowed := map[string]string{
		"machineName":     "machine_name",
		"brand":           "brand",
		"model":           "model",
		"serialNo":        "serial_no",
		"tonnage":         "tonnage",
		"screwDiameter":   "screw_diameter",
		"injectionWeight": "injection_weight",
		"is2K":            "is_2k",
		"floorRow":        "floor_row",
		"floorPosition":   "floor_position",
		"inputMode":       "input_mode",
	}
	updates := map[string]any{}
	for key, value := range body {
		if column, ok := allowed[key]; ok {
			updates[column] = value
		}
	}

	m, err := h.store.UpdateMachine(c.Request.Context(), id, updates)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /api/machines/:id, cascading to status logs
// and capability rows.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := machineIDParam(c)
	if !ok {
		return
	}
	name, err := h.store.DeleteMachine(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": name})
}
