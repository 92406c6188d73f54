package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/liveness"
	"shopfloor-status-backend/internal/model"
)

// GetSummary handles GET /api/summary: machine counts per displayed status
// plus the total cycle count, recomputed from the liveness overlay on every
// call.
func (h *Handler) GetSummary(c *gin.Context) {
	rows, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	now := h.now()
	counts := map[model.MachineStatus]int{}
	totalCycles := 0
	for _, row := range rows {
		displayed := liveness.DisplayedStatus(row.Status, row.LastSeen, now, h.offlineThreshold)
		counts[displayed]++
		totalCycles += row.CycleCount
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       len(rows),
		"running":     counts[model.StatusRunning],
		"idle":        counts[model.StatusIdle],
		"fault":       counts[model.StatusFault],
		"offline":     counts[model.StatusOffline],
		"totalCycles": totalCycles,
	})
}
