package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetShifts handles GET /api/shifts.
func (h *Handler) GetShifts(c *gin.Context) {
	shifts, err := h.store.ListShifts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// GetCurrentShift handles GET /api/shifts/current: resolves which shift
// covers the current wall-clock time, null when none does.
func (h *Handler) GetCurrentShift(c *gin.Context) {
	shift, err := h.store.CurrentShift(c.Request.Context(), h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}
