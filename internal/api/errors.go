package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopfloor-status-backend/internal/store"
)

// respondError maps store errors onto the HTTP error taxonomy. Unknown
// errors become a generic 500; their detail is surfaced only when debug
// errors are enabled.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrPolicy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("internal error")
		body := gin.H{"error": "internal server error"}
		if h.debugErrors {
			body["detail"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
