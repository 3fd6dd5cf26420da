package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/oauth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidState = errors.New("invalid or expired state")
	ErrMissingCode  = errors.New("missing authorization code")
)

const stateTTL = 10 * time.Minute

type stateData struct {
	sessionID uuid.UUID
	expiresAt time.Time
}

// Flow runs the interactive Google sign-in for browser sessions. Begin hands
// out a consent URL bound to a session; Complete finishes the redirect and
// publishes the actor on the hub.
type Flow struct {
	provider oauth.Provider
	hub      *Hub
	states   sync.Map
	log      zerolog.Logger
}

func NewFlow(provider oauth.Provider, hub *Hub, log zerolog.Logger) *Flow {
	return &Flow{provider: provider, hub: hub, log: log}
}

func (f *Flow) Begin(sessionID uuid.UUID) (string, error) {
	state, err := oauth.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	f.states.Store(state, stateData{sessionID: sessionID, expiresAt: time.Now().Add(stateTTL)})
	return f.provider.GetConsentURL(state), nil
}

// Complete exchanges code for the actor and signs it in on the session the
// state was issued for. A state is accepted once.
func (f *Flow) Complete(ctx context.Context, state, code string) (uuid.UUID, *models.Actor, error) {
	if state == "" {
		return uuid.Nil, nil, ErrInvalidState
	}

	sd, ok := f.states.LoadAndDelete(state)
	if !ok {
		return uuid.Nil, nil, ErrInvalidState
	}
	data, ok := sd.(stateData)
	if !ok || time.Now().After(data.expiresAt) {
		return uuid.Nil, nil, ErrInvalidState
	}

	if code == "" {
		return data.sessionID, nil, ErrMissingCode
	}

	actor, err := f.provider.ExchangeCode(ctx, code)
	if err != nil {
		return data.sessionID, nil, err
	}

	if err := f.hub.Publish(data.sessionID, actor); err != nil {
		return data.sessionID, nil, fmt.Errorf("failed to publish sign-in: %w", err)
	}

	f.log.Info().
		Str("session_id", data.sessionID.String()).
		Str("actor_id", actor.ID).
		Str("provider", f.provider.Name()).
		Msg("actor signed in")
	return data.sessionID, actor, nil
}

// CleanupStates drops unused states past their expiry every interval until
// ctx is cancelled.
func (f *Flow) CleanupStates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			f.expireStates(now)
		}
	}
}

func (f *Flow) expireStates(now time.Time) {
	f.states.Range(func(key, value any) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			f.states.Delete(key)
		}
		return true
	})
}
