package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const EventSessionChanged = "session_changed"

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client is one open event stream of a browser session. A session may have
// several, one per tab.
type Client struct {
	ID        string
	SessionID uuid.UUID
	Send      chan []byte
}

type sessionMessage struct {
	SessionID uuid.UUID
	Event     Event
}

// Hub fans session events out to the streams of that session.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *sessionMessage
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *sessionMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every stream.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.SessionID != msg.SessionID {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// A pending event already tells the stream to refresh.
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish never blocks; events are dropped while the queue is full.
func (h *Hub) Publish(sessionID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &sessionMessage{SessionID: sessionID, Event: event}:
	default:
	}
}

// SessionChanged tells every stream of sessionID to send a fresh snapshot.
func (h *Hub) SessionChanged(sessionID uuid.UUID) {
	h.Publish(sessionID, Event{Type: EventSessionChanged})
}

func (h *Hub) Streams(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, client := range h.clients {
		if client.SessionID == sessionID {
			n++
		}
	}
	return n
}
