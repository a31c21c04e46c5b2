package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/pkg/config"
	"github.com/gorilla/websocket"
)

// Client represents a single connected viewer or broadcaster socket.
type Client struct {
	Conn      *websocket.Conn
	UserID    string
	EpisodeID string
	Send      chan []byte

	mu      sync.Mutex
	cardIDs map[string]bool
}

// SubscribeCard adds a card subscription for targeted card updates.
func (c *Client) SubscribeCard(cardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cardIDs == nil {
		c.cardIDs = make(map[string]bool)
	}
	c.cardIDs[cardID] = true
}

func (c *Client) subscribedTo(cardID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cardIDs[cardID]
}

// Hub manages all connected clients grouped by episode and fans out
// dispatch notifications. Sends never block the dispatch path: a client
// whose buffer is full misses the frame and recovers from REST state.
type Hub struct {
	episodeClients map[string]map[*Client]bool
	userClients    map[string]map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	logger         *logging.ChanneledLogger
	mu             sync.RWMutex
}

// NewHub creates a hub with no connected clients.
func NewHub(logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		episodeClients: make(map[string]map[*Client]bool),
		userClients:    make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// NewClient wraps an upgraded connection with a buffered send queue.
func (h *Hub) NewClient(conn *websocket.Conn, userID, episodeID string) *Client {
	return &Client{
		Conn:      conn,
		UserID:    userID,
		EpisodeID: episodeID,
		Send:      make(chan []byte, config.WSSendBufferSize),
	}
}

// Run starts the hub's registration loop. This should be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.episodeClients[client.EpisodeID]; !ok {
				h.episodeClients[client.EpisodeID] = make(map[*Client]bool)
			}
			h.episodeClients[client.EpisodeID][client] = true
			if client.UserID != "" {
				if _, ok := h.userClients[client.UserID]; !ok {
					h.userClients[client.UserID] = make(map[*Client]bool)
				}
				h.userClients[client.UserID][client] = true
			}
			h.mu.Unlock()
			h.logger.Broadcast().Debug("Client registered", "episodeId", client.EpisodeID, "userId", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.episodeClients[client.EpisodeID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.episodeClients, client.EpisodeID)
					}
				}
			}
			if client.UserID != "" {
				if clients, ok := h.userClients[client.UserID]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.userClients, client.UserID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Broadcast().Debug("Client unregistered", "episodeId", client.EpisodeID, "userId", client.UserID)
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for unregistration.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastToEpisode sends a message to every client in an episode room.
func (h *Hub) BroadcastToEpisode(episodeID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Broadcast().Error("Failed to marshal broadcast message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.episodeClients[episodeID]
	if !ok {
		return
	}
	dropped := 0
	for client := range clients {
		select {
		case client.Send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Broadcast().Warn("Dropped frames on full send buffers", "episodeId", episodeID, "type", msg.Type, "dropped", dropped)
	}
}

// SendToUser sends a message to every connection held by one user.
func (h *Hub) SendToUser(userID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Broadcast().Error("Failed to marshal user message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userClients[userID] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// SendToCard sends a message to clients subscribed to a specific card.
func (h *Hub) SendToCard(cardID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Broadcast().Error("Failed to marshal card message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.episodeClients {
		for client := range clients {
			if !client.subscribedTo(cardID) {
				continue
			}
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// EpisodeConnectionCount reports the number of live sockets in a room.
func (h *Hub) EpisodeConnectionCount(episodeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.episodeClients[episodeID])
}

// WritePump drains the client's send queue onto the socket. One per client,
// run as a goroutine; it owns all writes to the connection.
func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes client frames (card subscriptions) and unregisters the
// client when the connection drops.
func (h *Hub) ReadPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(config.WSMaxMessageBytes)
	client.Conn.SetReadDeadline(time.Now().Add(config.WSPongTimeout))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(config.WSPongTimeout))
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Broadcast().Debug("Unexpected close", "userId", client.UserID, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case TypeSubscribeCard:
			if msg.CardID != "" {
				client.SubscribeCard(msg.CardID)
			}
		}
	}
}
