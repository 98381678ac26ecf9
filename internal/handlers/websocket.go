package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/arnold/pursue-api/internal/middleware"
)

// Event types sent over WebSocket
const (
	EventProgressLogged  = "progress_logged"
	EventProgressRemoved = "progress_removed"
	EventMemberJoined    = "member_joined"
	EventMemberLeft      = "member_left"
	EventNudgeSent       = "nudge_sent"
)

// WSEvent is the JSON message sent to connected clients
type WSEvent struct {
	Type    string      `json:"type"`
	GroupID uuid.UUID   `json:"groupId"`
	UserID  uuid.UUID   `json:"userId"`
	Data    interface{} `json:"data,omitempty"`
}

// connection wraps a websocket connection with its user ID
type connection struct {
	conn   *websocket.Conn
	userID uuid.UUID
}

// Hub manages WebSocket connections per group
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*connection]bool // groupID -> set of connections
}

// Global hub instance
var Rooms = &Hub{
	rooms: make(map[uuid.UUID]map[*connection]bool),
}

func (h *Hub) register(groupID uuid.UUID, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[groupID] == nil {
		h.rooms[groupID] = make(map[*connection]bool)
	}
	h.rooms[groupID][conn] = true
	log.Printf("WS register: user %s joined group %s (total: %d)", conn.userID, groupID, len(h.rooms[groupID]))
}

func (h *Hub) unregister(groupID uuid.UUID, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[groupID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, groupID)
		}
	}
}

// Broadcast sends an event to every connection in a group room except the
// user who triggered it.
func (h *Hub) Broadcast(groupID, excludeUserID uuid.UUID, event WSEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.rooms[groupID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("WS broadcast marshal error: %v", err)
		return
	}

	for c := range conns {
		if c.userID == excludeUserID {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("WS write error: %v", err)
		}
	}
}

// WebSocketUpgrade checks the upgrade request and validates the JWT, which
// browsers can only pass as a query param.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenString := c.Query("token")
		if tokenString == "" {
			authHeader := c.Get("Authorization")
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				tokenString = ""
			}
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authentication token",
			})
		}

		claims, err := middleware.ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userId", claims.UserID)
		return c.Next()
	}
}

// HandleWebSocket handles a WebSocket connection for a specific group
func HandleWebSocket(c *websocket.Conn) {
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		c.Close()
		return
	}

	userID, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		c.Close()
		return
	}

	if !isGroupMember(groupID, userID) {
		c.Close()
		return
	}

	conn := &connection{conn: c, userID: userID}
	Rooms.register(groupID, conn)
	defer Rooms.unregister(groupID, conn)

	// Keep connection alive — read messages (client sends pings/keepalives)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
