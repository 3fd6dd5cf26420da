package handlers

import (
	"github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// EventsHandler streams the session snapshot so a tab left on the loading
// screen learns when resolution finishes without polling.
type EventsHandler struct {
	hub SessionEventsHub
}

func NewEventsHandler(hub SessionEventsHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

func (h *EventsHandler) Stream(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	stream := c.SSE()

	client := &sse.Client{
		ID:        uuid.New().String(),
		SessionID: middleware.GetSessionID(c),
		Send:      make(chan []byte, 1),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := stream.SendJSON(store.Snapshot(), "session", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case _, ok := <-client.Send:
			if !ok {
				return
			}
			// Events only signal a change; the snapshot is read fresh so
			// out-of-order notifications cannot leave a stale state behind.
			store.Touch()
			if err := stream.SendJSON(store.Snapshot(), "session", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
