// Package hub maintains the per-meeting fanout groups: the set of live
// connections subscribed to each meeting's broadcasts.
package hub

import (
	"log/slog"
	"sync"

	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/metrics"
)

// Conn is one attached client connection. Send must be safe for
// concurrent use; implementations serialize writes internally.
type Conn interface {
	ID() string
	Send(event string, payload any) error
	Close() error
}

// Hub maps meeting keys to their fanout groups. Delivery to each member
// is independent: a failing connection never blocks the others.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]Conn
	logger *slog.Logger
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		groups: map[string]map[string]Conn{},
		logger: logger,
	}
}

// Join subscribes conn to the meeting's broadcasts.
func (h *Hub) Join(meetingKey string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.groups[meetingKey]
	if g == nil {
		g = map[string]Conn{}
		h.groups[meetingKey] = g
	}
	g[conn.ID()] = conn
}

// Leave removes the connection from one meeting's group and reports
// whether it was a member.
func (h *Hub) Leave(meetingKey, connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.groups[meetingKey]
	if g == nil {
		return false
	}
	if _, ok := g[connID]; !ok {
		return false
	}
	delete(g, connID)
	if len(g) == 0 {
		delete(h.groups, meetingKey)
	}
	return true
}

// DropConn removes the connection from every group it belongs to and
// returns the affected meeting keys. Used on transport disconnect.
func (h *Hub) DropConn(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var keys []string
	for key, g := range h.groups {
		if _, ok := g[connID]; ok {
			delete(g, connID)
			keys = append(keys, key)
			if len(g) == 0 {
				delete(h.groups, key)
			}
		}
	}
	return keys
}

// DropGroup removes the whole fanout group for a meeting and returns
// how many connections it held. Used when a session is cleared.
func (h *Hub) DropGroup(meetingKey string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.groups[meetingKey])
	delete(h.groups, meetingKey)
	return n
}

// Members returns the current group size for a meeting.
func (h *Hub) Members(meetingKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[meetingKey])
}

// Broadcast delivers the event to every member of the meeting's group.
// Send errors are logged and counted, never propagated.
func (h *Hub) Broadcast(meetingKey, event string, payload any) {
	h.BroadcastExcept(meetingKey, "", event, payload)
}

// BroadcastExcept is Broadcast minus one connection, used for
// notifications addressed to "the rest of the group".
func (h *Hub) BroadcastExcept(meetingKey, exceptConnID, event string, payload any) {
	h.mu.RLock()
	members := make([]Conn, 0, len(h.groups[meetingKey]))
	for id, c := range h.groups[meetingKey] {
		if id == exceptConnID {
			continue
		}
		members = append(members, c)
	}
	h.mu.RUnlock()

	// Deliver outside the lock so a slow connection cannot stall
	// membership changes or other broadcasts.
	for _, c := range members {
		if err := c.Send(event, payload); err != nil {
			metrics.RecordBroadcastDelivery(event, false)
			h.logger.Warn("broadcast delivery failed",
				"meeting_key", meetingKey,
				"event", event,
				"conn_id", c.ID(),
				"error", err,
			)
			continue
		}
		metrics.RecordBroadcastDelivery(event, true)
	}
}
