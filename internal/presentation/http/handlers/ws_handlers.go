package handlers

import (
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/services"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer for the REST API; the
	// socket is public read-only fanout gated by the join token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandlers upgrades realtime connections into the broadcast hub.
type WSHandlers struct {
	hub         *messaging.Hub
	authService *services.AuthService
	logger      *logging.ChanneledLogger
}

// NewWSHandlers creates WebSocket handlers with injected dependencies.
func NewWSHandlers(hub *messaging.Hub, authService *services.AuthService, logger *logging.ChanneledLogger) *WSHandlers {
	return &WSHandlers{hub: hub, authService: authService, logger: logger}
}

// Connect upgrades the request and joins the client to an episode room.
// Query params: episode (required), token (optional viewer identity for
// user-targeted frames).
func (h *WSHandlers) Connect(c *gin.Context) {
	episodeID := c.Query("episode")
	if episodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "episode query parameter required"})
		return
	}

	userID := ""
	if token := c.Query("token"); token != "" {
		subject, _, err := h.authService.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = subject
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Broadcast().Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := h.hub.NewClient(conn, userID, episodeID)
	h.hub.Register(client)
	go h.hub.WritePump(client)
	go h.hub.ReadPump(client)
}
