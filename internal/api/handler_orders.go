package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/model"
	"shopfloor-status-backend/internal/store"
)

// GetOrders handles GET /api/orders.
func (h *Handler) GetOrders(c *gin.Context) {
	rows, err := h.store.ListOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetAvailableOrders handles GET /api/orders/available: the assignment
// picker payload with the part-to-machine compatibility map.
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	result, err := h.store.AvailableOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type orderRequest struct {
	OrderNumber       string   `json:"orderNumber" binding:"required"`
	PartNumber        string   `json:"partNumber" binding:"required"`
	QuantityRequired  int      `json:"quantityRequired" binding:"required,gt=0"`
	MachineID         *int     `json:"machineId"`
	DueDate           *string  `json:"dueDate"`
	TargetCycleTime   *float64 `json:"targetCycleTime"`
	TargetUtilization *float64 `json:"targetUtilization"`
	Notes             *string  `json:"notes"`
}

// PostOrder handles POST /api/orders.
func (h *Handler) PostOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := model.ProductionOrder{
		OrderNumber:       req.OrderNumber,
		PartNumber:        req.PartNumber,
		QuantityRequired:  req.QuantityRequired,
		MachineID:         req.MachineID,
		TargetCycleTime:   req.TargetCycleTime,
		TargetUtilization: req.TargetUtilization,
		Notes:             req.Notes,
	}
	if req.DueDate != nil {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			due, err = time.Parse("2006-01-02", *req.DueDate)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dueDate format"})
			return
		}
		order.DueDate = &due
	}

	if err := h.store.CreateOrder(c.Request.Context(), &order); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "orderNumber": order.OrderNumber})
}

// PostOrderImport handles POST /api/orders/bulk-import with a JSON array of
// order rows.
func (h *Handler) PostOrderImport(c *gin.Context) {
	var orders []store.OrderImport
	if err := c.ShouldBindJSON(&orders); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.store.ImportOrders(c.Request.Context(), orders)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type assignRequest struct {
	MachineID int `json:"machineId" binding:"required"`
}

// PostOrderAssign handles POST /api/orders/:orderNumber/assign. It routes
// through the same transactional assignment as the machine config endpoint
// so the order link and machine config always change together.
func (h *Handler) PostOrderAssign(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.store.AssignOrder(c.Request.Context(), req.MachineID, &orderNumber)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": applied})
}

// PatchOrder handles PATCH /api/orders/:orderNumber. Quantity accounting is
// excluded: completed counts change only through production logs.
func (h *Handler) PatchOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowed := map[string]string{
		"quantityRequired":  "quantity_required",
		"status":            "status",
		"dueDate":           "due_date",
		"targetCycleTime":   "target_cycle_time",
		"targetUtilization": "target_utilization",
		"notes":             "notes",
	}
	updates := map[string]any{}
	for key, value := range body {
		if column, ok := allowed[key]; ok {
			updates[column] = value
		}
	}

	if err := h.store.UpdateOrder(c.Request.Context(), orderNumber, updates); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteOrder handles DELETE /api/orders/:orderNumber.
func (h *Handler) DeleteOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	if err := h.store.DeleteOrder(c.Request.Context(), orderNumber); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
