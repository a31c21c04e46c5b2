// Package handlers provides the HTTP handlers for the bingo engine API.
package handlers

import (
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/services"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the broadcaster login body.
type LoginRequest struct {
	BroadcasterID string `json:"broadcasterId" binding:"required"`
	Password      string `json:"password" binding:"required"`
}

// AuthHandlers contains authentication HTTP handlers.
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
}

// NewAuthHandlers creates auth handlers with injected dependencies.
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger) *AuthHandlers {
	return &AuthHandlers{authService: authService, logger: logger}
}

// Login exchanges the broadcaster password for a signed token.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := h.authService.Login(req.BroadcasterID, req.Password)
	if err != nil {
		c.JSON(domainerrors.HTTPStatus(err), gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
