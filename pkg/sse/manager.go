// Package sse implements per-user server-sent event fan-out.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event is one message pushed to a client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	userID string
	ch     chan Event
}

// Manager tracks connected clients per user and fans events out to them.
// A user can hold several connections (multiple tabs); each gets every event.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]map[*client]struct{}),
	}
}

// Subscribe registers a new connection for the user and returns the event
// channel plus an unsubscribe func. The channel is buffered; a client that
// stops reading loses events rather than blocking the sender.
func (m *Manager) Subscribe(userID string) (<-chan Event, func()) {
	c := &client{userID: userID, ch: make(chan Event, 16)}

	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[*client]struct{})
	}
	m.clients[userID][c] = struct{}{}
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		if set, ok := m.clients[userID]; ok {
			if _, ok := set[c]; ok {
				delete(set, c)
				close(c.ch)
			}
			if len(set) == 0 {
				delete(m.clients, userID)
			}
		}
		m.mu.Unlock()
	}
	return c.ch, unsubscribe
}

// SendToUser delivers an event to every connection the user has open.
// Returns the number of connections reached.
func (m *Manager) SendToUser(userID, eventType string, payload interface{}) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for c := range m.clients[userID] {
		select {
		case c.ch <- Event{Type: eventType, Payload: payload}:
			sent++
		default:
			// Slow client; drop rather than block the sync pipeline.
		}
	}
	return sent
}

// ClientCount reports open connections for the user.
func (m *Manager) ClientCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// TerminalFunc decides whether a delivered event ends the stream.
type TerminalFunc func(Event) bool

// ServeHTTP streams events for the user over the gin context until the
// client disconnects.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	m.Stream(c, userID, nil, nil)
}

// Stream pushes events for the user. A non-nil snapshot is written first so
// the client never starts blind; when terminal reports true for a delivered
// event the stream closes instead of waiting for the client to hang up.
func (m *Manager) Stream(c *gin.Context, userID string, snapshot *Event, terminal TerminalFunc) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ch, unsubscribe := m.Subscribe(userID)
	defer unsubscribe()

	log.Printf("[SSE] Client connected: user=%s", userID)
	defer log.Printf("[SSE] Client disconnected: user=%s", userID)

	sentSnapshot := false
	c.Stream(func(w io.Writer) bool {
		if !sentSnapshot {
			sentSnapshot = true
			if snapshot != nil {
				writeEvent(w, *snapshot)
				return true
			}
		}
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			writeEvent(w, event)
			if terminal != nil && terminal(event) {
				return false
			}
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func writeEvent(w io.Writer, event Event) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("[SSE] Marshal error: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
}
