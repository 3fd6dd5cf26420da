package middleware

import (
	"strings"

	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	SessionIDKey = "session_id"
	StoreKey     = "session_store"
)

type SessionTokenValidator interface {
	ValidateSessionToken(token string) (uuid.UUID, error)
}

type StoreLookup interface {
	Get(sessionID uuid.UUID) (*session.Store, bool)
}

// Session authenticates the browser session token and attaches the session's
// Store to the request.
func Session(tokens SessionTokenValidator, stores StoreLookup) drift.HandlerFunc {
	return func(c *drift.Context) {
		token, ok := BearerToken(c)
		if !ok {
			if c.GetHeader("Authorization") == "" {
				c.Unauthorized("missing authorization header")
			} else {
				c.Unauthorized("invalid authorization header format")
			}
			return
		}

		sessionID, err := tokens.ValidateSessionToken(token)
		if err != nil {
			c.Unauthorized("invalid or expired session token")
			return
		}

		store, ok := stores.Get(sessionID)
		if !ok {
			c.Unauthorized("session expired")
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Set(StoreKey, store)

		c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *drift.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetSessionID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(SessionIDKey); ok {
		if sid, ok := id.(uuid.UUID); ok {
			return sid
		}
	}
	return uuid.Nil
}

func GetStore(c *drift.Context) *session.Store {
	if v, ok := c.Get(StoreKey); ok {
		if s, ok := v.(*session.Store); ok {
			return s
		}
	}
	return nil
}
