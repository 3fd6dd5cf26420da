package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestJWTService creates a JWTService with test configuration
func TestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key-for-testing-only", 15*time.Minute)
}

// GenerateTestToken generates a valid session token for testing
func GenerateTestToken(t *testing.T, sessionID uuid.UUID) string {
	t.Helper()
	token, err := TestJWTService().GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthHeader returns an Authorization header value with a Bearer token
func AuthHeader(token string) string {
	return "Bearer " + token
}

// FakeAuth is an in-memory provider that delivers actor changes
// synchronously.
type FakeAuth struct {
	mu         sync.Mutex
	fn         func(*models.Actor)
	SignOutErr error
	SignOuts   int
	ConsentURL string
}

func (f *FakeAuth) SignIn(ctx context.Context) (string, error) {
	if f.ConsentURL == "" {
		return "https://accounts.google.com/o/oauth2/auth?state=test", nil
	}
	return f.ConsentURL, nil
}

func (f *FakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOuts++
	err := f.SignOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.Emit(nil)
	return nil
}

func (f *FakeAuth) Subscribe(fn func(*models.Actor)) (func(), error) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {}, nil
}

func (f *FakeAuth) Emit(a *models.Actor) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(a)
	}
}

// ProfileWriterFunc adapts a function to session.ProfileWriter.
type ProfileWriterFunc func(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)

func (f ProfileWriterFunc) Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	return f(ctx, id, u)
}

type resolverFunc func(ctx context.Context, actor models.Actor) (*models.Profile, error)

func (f resolverFunc) Resolve(ctx context.Context, actor models.Actor) (*models.Profile, error) {
	return f(ctx, actor)
}

var ErrUnexpectedWrite = errors.New("unexpected profile write")

// SettledStore returns a store that has finished resolving profile. A nil
// profile leaves the session signed out.
func SettledStore(t *testing.T, profile *models.Profile, writer session.ProfileWriter) (*session.Store, *FakeAuth) {
	t.Helper()
	if writer == nil {
		writer = ProfileWriterFunc(func(context.Context, string, models.ProfileUpdate) (*models.Profile, error) {
			return nil, ErrUnexpectedWrite
		})
	}

	auth := &FakeAuth{}
	store, err := session.NewStore(auth, StaticResolver(profile), writer)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	if profile == nil {
		auth.Emit(nil)
	} else {
		auth.Emit(&models.Actor{ID: profile.ID, Email: profile.Email, DisplayName: profile.DisplayName})
	}
	require.Eventually(t, func() bool { return !store.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	return store, auth
}

// LoadingStore returns a store whose resolution never finishes during the
// test.
func LoadingStore(t *testing.T) *session.Store {
	t.Helper()
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })

	auth := &FakeAuth{}
	store, err := session.NewStore(auth, resolverFunc(func(ctx context.Context, a models.Actor) (*models.Profile, error) {
		<-hold
		return nil, ctx.Err()
	}), nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	auth.Emit(&models.Actor{ID: "loading"})
	return store
}

// ApprovedProfile returns an approved, onboarded profile of role in shopID.
func ApprovedProfile(id string, role models.Role, shopID string) *models.Profile {
	return &models.Profile{
		ID:          id,
		Email:       id + "@sparkle-wash.com",
		DisplayName: id,
		Role:        role,
		Status:      models.StatusApproved,
		ShopID:      shopID,
	}
}

// StoreMap is a fixed session lookup for middleware and handlers.
type StoreMap map[uuid.UUID]*session.Store

func (m StoreMap) Get(id uuid.UUID) (*session.Store, bool) {
	s, ok := m[id]
	return s, ok
}

// StaticResolver resolves every actor to a copy of profile.
func StaticResolver(profile *models.Profile) session.Resolver {
	return resolverFunc(func(ctx context.Context, a models.Actor) (*models.Profile, error) {
		return profile.Clone(), nil
	})
}
