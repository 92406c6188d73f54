package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/model"
)

// GetParts handles GET /api/parts.
func (h *Handler) GetParts(c *gin.Context) {
	rows, err := h.store.ListParts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetPart handles GET /api/parts/:partNumber.
func (h *Handler) GetPart(c *gin.Context) {
	detail, err := h.store.GetPart(c.Request.Context(), c.Param("partNumber"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type partRequest struct {
	PartNumber  string  `json:"partNumber" binding:"required"`
	PartName    string  `json:"partName" binding:"required"`
	ProductLine *string `json:"productLine"`
	MachineIDs  []int   `json:"machineIds"`
}

// PostPart handles POST /api/parts: the part row and its capability rows
// are created in one transaction.
func (h *Handler) PostPart(c *gin.Context) {
	var req partRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	part := model.Part{
		PartNumber:  req.PartNumber,
		PartName:    req.PartName,
		ProductLine: req.ProductLine,
	}
	if err := h.store.CreatePart(c.Request.Context(), &part, req.MachineIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "partNumber": part.PartNumber})
}

type partPatch struct {
	PartName    *string `json:"partName"`
	ProductLine *string `json:"productLine"`
	MachineIDs  []int   `json:"machineIds"`
}

// PatchPart handles PATCH /api/parts/:partNumber. A machineIds field
// replaces the capability set wholesale.
func (h *Handler) PatchPart(c *gin.Context) {
	var req partPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.PartName != nil {
		updates["part_name"] = *req.PartName
	}
	if req.ProductLine != nil {
		updates["product_line"] = *req.ProductLine
	}

	if err := h.store.UpdatePart(c.Request.Context(), c.Param("partNumber"), updates, req.MachineIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeletePart handles DELETE /api/parts/:partNumber.
func (h *Handler) DeletePart(c *gin.Context) {
	if err := h.store.DeletePart(c.Request.Context(), c.Param("partNumber")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
