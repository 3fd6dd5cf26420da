package identity

import (
	"context"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/google/uuid"
)

// ClientAuth is the authentication provider as seen by one browser session.
type ClientAuth struct {
	sessionID uuid.UUID
	hub       *Hub
	flow      *Flow
}

func NewClientAuth(sessionID uuid.UUID, hub *Hub, flow *Flow) *ClientAuth {
	return &ClientAuth{sessionID: sessionID, hub: hub, flow: flow}
}

func (a *ClientAuth) SessionID() uuid.UUID {
	return a.sessionID
}

// SignIn starts the interactive sign-in and returns the consent URL. The
// actor arrives later through Subscribe.
func (a *ClientAuth) SignIn(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.flow.Begin(a.sessionID)
}

func (a *ClientAuth) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.hub.Publish(a.sessionID, nil)
}

func (a *ClientAuth) Subscribe(fn func(*models.Actor)) (func(), error) {
	return a.hub.Subscribe(a.sessionID, fn)
}
