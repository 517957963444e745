package app

import (
	"encoding/json"
	"sync"

	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// messageWriter is the slice of *websocket.Conn the hub needs to push frames
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client one authenticated websocket connection. Writes are serialized per
// connection; gofiber's conn is not safe for concurrent writers.
type Client struct {
	userID string
	conn   messageWriter
	mu     sync.Mutex
}

// NewClient wrap an authenticated connection
func NewClient(userID string, conn messageWriter) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
	}
}

// UserID the identity attached at handshake time
func (c *Client) UserID() string {
	return c.userID
}

// Send marshal resp and write it as one text frame
func (c *Client) Send(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// ConversationHub owns the in-memory room registry: conversation id to the
// set of currently joined connections. Scoped to one gateway instance and
// mutated only by the gateway's own event handlers; the REST facade and the
// thread store never touch it.
type ConversationHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewConversationHub create an empty hub
func NewConversationHub() *ConversationHub {
	return &ConversationHub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join add the client to the conversation's room
func (h *ConversationHub) Join(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
}

// Leave remove the client from one room
func (h *ConversationHub) Leave(conversationID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// RemoveClient drop the client from every room, called on disconnect
func (h *ConversationHub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// RoomSize number of connections currently joined to the conversation
func (h *ConversationHub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Broadcast push resp to every connection joined to the conversation,
// including the sender's own other connections. Delivery is at most once;
// a connection that is not joined simply misses the frame and catches up
// over REST.
func (h *ConversationHub) Broadcast(conversationID string, resp domain.WSResponse) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(resp); err != nil {
			logger.Log.Error("broadcast write failed",
				zap.String("conversationID", conversationID),
				zap.String("userID", c.userID),
				zap.Error(err))
		}
	}
}
