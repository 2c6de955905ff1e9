package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Entities named in change notifications.
const (
	EntityCategory     = "category"
	EntityItem         = "item"
	EntityList         = "list"
	EntityListItem     = "list_item"
	EntityTemplate     = "template"
	EntityTemplateItem = "template_item"
	EntityBackup       = "backup"
)

// Message is a change notification. List and ListItem changes carry the
// list's UID so widget clients can follow a single list.
type Message struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	ID      int64          `json:"id,omitempty"`
	ListUID string         `json:"list_uid,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// ForList scopes the message to one shopping list.
func (m Message) ForList(uid string) Message {
	m.ListUID = uid
	return m
}

// Hub maintains the set of active WebSocket clients and fans out change
// notifications to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n, "list_uid", c.listUID)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every interested client without blocking.
// A client following one list only receives messages scoped to that list
// and unscoped ones. Clients that keep missing messages are disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	var stale []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		if !c.offer(data) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Warn("disconnecting slow client", "list_uid", c.listUID, "type", msg.Type)
		h.Unregister(c)
		c.disconnect()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
