package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shopfloor-status-backend/internal/store"
)

// PostStatus handles POST /api/status, the device heartbeat path. The
// device treats ingestion as fire-and-forget: a heartbeat sequenced behind
// a newer one is dropped and still acknowledged.
func (h *Handler) PostStatus(c *gin.Context) {
	var hb store.Heartbeat
	if err := c.ShouldBindJSON(&hb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if hb.MachineID <= 0 || hb.MachineName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "machineId and machineName are required"})
		return
	}

	res, err := h.store.ApplyHeartbeat(c.Request.Context(), hb, h.now())
	if err != nil {
		if errors.Is(err, store.ErrStaleHeartbeat) {
			h.log.WithField("machine", hb.MachineID).Debug("dropped stale heartbeat")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.respondError(c, err)
		return
	}

	if res.CycleReset {
		h.log.WithFields(logrus.Fields{
			"machine": hb.MachineID,
			"cycles":  hb.CycleCount,
		}).Info("cycle counter reset, new production run context")
	}
	h.dispatchFaultAlert(res, hb.MachineID)

	c.JSON(http.StatusOK, gin.H{"received": true})
}
