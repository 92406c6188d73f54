package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetEvents handles GET /api/events: a server-sent event stream of registry
// snapshots on the publisher's interval. Each connection owns its own
// subscription; closing it never disturbs other streams or the poll loop.
func (h *Handler) GetEvents(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live view is not running"})
		return
	}

	frames, cancel := h.publisher.Subscribe()
	defer cancel()

	// Send an immediate snapshot so a new client doesn't wait a full
	// interval for its first frame.
	if snapshot, err := h.publisher.Snapshot(c.Request.Context()); err == nil {
		c.SSEvent("machines", snapshot)
		c.Writer.Flush()
	}

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case snapshot, ok := <-frames:
			if !ok {
				return false
			}
			c.SSEvent("machines", snapshot)
			return true
		}
	})
}
