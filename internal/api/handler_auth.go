package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"shopfloor-status-backend/internal/mw"
	"shopfloor-status-backend/internal/store"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PostLogin handles POST /api/auth/login: verifies credentials and issues
// an operator bearer token carrying the role claim.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.respondError(c, err)
		return
	}
	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := mw.SignToken(h.jwtSecret, h.tokenTTL, user.Username, user.Name, user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.store.TouchLastLogin(c.Request.Context(), user.ID, h.now()); err != nil {
		h.log.WithError(err).Warn("failed to stamp last login")
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"username": user.Username,
			"name":     user.Name,
			"role":     user.Role,
		},
	})
}

// GetMe handles GET /api/auth/me for token introspection.
func (h *Handler) GetMe(c *gin.Context) {
	claims := mw.UserClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username": claims.Username,
		"name":     claims.Name,
		"role":     claims.Role,
	})
}
