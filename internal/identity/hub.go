package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrHubClosed = errors.New("identity hub is not running")

// ActorEvent reports the actor signed in on a browser session, or nil after
// sign-out.
type ActorEvent struct {
	SessionID uuid.UUID
	Actor     *models.Actor
}

type Client struct {
	ID        string
	SessionID uuid.UUID
	Send      chan ActorEvent
}

// Hub fans actor changes out to the subscribers of each browser session and
// remembers the latest actor so late subscribers start from it.
type Hub struct {
	clients    map[string]*Client
	current    map[uuid.UUID]*models.Actor
	register   chan *Client
	unregister chan *Client
	broadcast  chan ActorEvent
	forget     chan uuid.UUID
	done       chan struct{}
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		current:    make(map[uuid.UUID]*models.Actor),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ActorEvent, 256),
		forget:     make(chan uuid.UUID, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and events until ctx is cancelled.
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
			actor := h.current[client.SessionID]
			h.mu.Unlock()
			h.deliver(client, ActorEvent{SessionID: client.SessionID, Actor: actor})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case sessionID := <-h.forget:
			h.mu.Lock()
			delete(h.current, sessionID)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			if ev.Actor == nil {
				delete(h.current, ev.SessionID)
			} else {
				h.current[ev.SessionID] = ev.Actor
			}
			h.mu.Unlock()

			h.mu.RLock()
			for _, client := range h.clients {
				if client.SessionID == ev.SessionID {
					h.deliver(client, ev)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliver queues ev for client. A subscriber that fell behind loses the
// events it has not read yet and is resynced to ev, so it always ends on the
// latest actor. Only the hub sends on client.Send, so the final send cannot
// block.
func (h *Hub) deliver(client *Client, ev ActorEvent) {
	select {
	case client.Send <- ev:
		return
	default:
	}

	skipped := 0
drain:
	for {
		select {
		case <-client.Send:
			skipped++
		default:
			break drain
		}
	}
	client.Send <- ev

	h.log.Warn().
		Str("client_id", client.ID).
		Str("session_id", client.SessionID.String()).
		Int("skipped", skipped).
		Msg("subscriber fell behind, resynced to latest actor")
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish records actor as the current actor of the session and notifies
// its subscribers. A nil actor means signed out.
func (h *Hub) Publish(sessionID uuid.UUID, actor *models.Actor) error {
	if h.stopped() {
		return ErrHubClosed
	}
	select {
	case h.broadcast <- ActorEvent{SessionID: sessionID, Actor: actor}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Forget drops the remembered actor of a session that no longer exists.
func (h *Hub) Forget(sessionID uuid.UUID) {
	if h.stopped() {
		return
	}
	select {
	case h.forget <- sessionID:
	case <-h.done:
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) Current(sessionID uuid.UUID) *models.Actor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current[sessionID]
}

// Subscribe calls fn with every actor change of the session, starting with
// the current actor. Calls are made one at a time in publish order.
func (h *Hub) Subscribe(sessionID uuid.UUID, fn func(*models.Actor)) (func(), error) {
	client := &Client{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Send:      make(chan ActorEvent, 16),
	}
	if err := h.Register(client); err != nil {
		return nil, err
	}

	go func() {
		for ev := range client.Send {
			fn(ev.Actor)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { h.Unregister(client) })
	}, nil
}
