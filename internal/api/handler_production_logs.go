package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/store"
)

// GetProductionLogs handles GET /api/production-logs with optional
// machineId, shiftDate and orderNumber filters.
func (h *Handler) GetProductionLogs(c *gin.Context) {
	var filter store.ProductionLogFilter

	if v := c.Query("machineId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid machineId"})
			return
		}
		filter.MachineID = &id
	}
	if v := c.Query("shiftDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shiftDate, use YYYY-MM-DD"})
			return
		}
		filter.ShiftDate = &d
	}
	if v := c.Query("orderNumber"); v != "" {
		filter.OrderNumber = &v
	}

	rows, err := h.store.ListProductionLogs(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type productionLogRequest struct {
	MachineID        int     `json:"machineId"`
	OrderNumber      string  `json:"orderNumber"`
	ShiftID          int     `json:"shiftId"`
	ShiftDate        string  `json:"shiftDate"`
	QuantityProduced int     `json:"quantityProduced"`
	QuantityScrap    int     `json:"quantityScrap"`
	StartedAt        *string `json:"startedAt"`
	EndedAt          *string `json:"endedAt"`
	Status           string  `json:"status"`
	LoggedBy         *string `json:"loggedBy"`
	Notes            *string `json:"notes"`
}

func parseOptionalTime(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// PostProductionLog handles POST /api/production-logs.
func (h *Handler) PostProductionLog(c *gin.Context) {
	var req productionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MachineID == 0 || req.OrderNumber == "" || req.ShiftID == 0 || req.ShiftDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "machineId, orderNumber, shiftId, and shiftDate are required"})
		return
	}

	shiftDate, err := time.Parse("2006-01-02", req.ShiftDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shiftDate, use YYYY-MM-DD"})
		return
	}
	startedAt, err := parseOptionalTime(req.StartedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startedAt timestamp"})
		return
	}
	endedAt, err := parseOptionalTime(req.EndedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endedAt timestamp"})
		return
	}

	log, err := h.store.CreateProductionLog(c.Request.Context(), store.ProductionLogInput{
		MachineID:        req.MachineID,
		OrderNumber:      req.OrderNumber,
		ShiftID:          req.ShiftID,
		ShiftDate:        shiftDate,
		QuantityProduced: req.QuantityProduced,
		QuantityScrap:    req.QuantityScrap,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		Status:           req.Status,
		LoggedBy:         req.LoggedBy,
		Notes:            req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

type productionLogPatch struct {
	QuantityProduced *int    `json:"quantityProduced"`
	QuantityScrap    *int    `json:"quantityScrap"`
	StartedAt        *string `json:"startedAt"`
	EndedAt          *string `json:"endedAt"`
	Status           *string `json:"status"`
	Notes            *string `json:"notes"`
}

// PatchProductionLog handles PATCH /api/production-logs/:id. Quantity edits
// are reconciled as deltas against the previous value of the same entry.
func (h *Handler) PatchProductionLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log id"})
		return
	}

	var req productionLogPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startedAt, err := parseOptionalTime(req.StartedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startedAt timestamp"})
		return
	}
	endedAt, err := parseOptionalTime(req.EndedAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endedAt timestamp"})
		return
	}

	log, err := h.store.UpdateProductionLog(c.Request.Context(), id, store.ProductionLogUpdate{
		QuantityProduced: req.QuantityProduced,
		QuantityScrap:    req.QuantityScrap,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		Status:           req.Status,
		Notes:            req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

// GetTodayProductionSummary handles GET /api/production-logs/today-summary.
func (h *Handler) GetTodayProductionSummary(c *gin.Context) {
	rows, err := h.store.TodayProductionSummary(c.Request.Context(), h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
