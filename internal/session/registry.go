package session

import (
	"context"
	"sync"
	"time"

	"github.com/dimitrije/washdesk-api/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Factory builds the store of a new browser session.
type Factory func(sessionID uuid.UUID) (*Store, error)

type RegistryConfig struct {
	IdleTimeout time.Duration
	Logger      zerolog.Logger
	Metrics     *metrics.Access
	// OnEvict runs after a session's store is closed.
	OnEvict func(sessionID uuid.UUID)
}

// Registry owns one Store per browser session and closes the ones that go
// idle.
type Registry struct {
	factory Factory
	cfg     RegistryConfig
	mu      sync.Mutex
	stores  map[uuid.UUID]*Store
}

func NewRegistry(factory Factory, cfg RegistryConfig) *Registry {
	return &Registry{
		factory: factory,
		cfg:     cfg,
		stores:  make(map[uuid.UUID]*Store),
	}
}

// Get returns the store of sessionID and marks it active.
func (r *Registry) Get(sessionID uuid.UUID) (*Store, bool) {
	r.mu.Lock()
	s, ok := r.stores[sessionID]
	r.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

func (r *Registry) GetOrCreate(sessionID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[sessionID]; ok {
		s.Touch()
		return s, nil
	}

	s, err := r.factory(sessionID)
	if err != nil {
		return nil, err
	}
	r.stores[sessionID] = s
	r.cfg.Metrics.SetActiveSessions(len(r.stores))
	return s, nil
}

func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	s, ok := r.stores[sessionID]
	delete(r.stores, sessionID)
	r.cfg.Metrics.SetActiveSessions(len(r.stores))
	r.mu.Unlock()

	if ok {
		r.close(sessionID, s)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Run evicts idle sessions every interval until ctx is cancelled, then
// closes every remaining store.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *Registry) evictIdle(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}

	r.mu.Lock()
	idle := make(map[uuid.UUID]*Store)
	for id, s := range r.stores {
		if now.Sub(s.LastActive()) > r.cfg.IdleTimeout {
			idle[id] = s
			delete(r.stores, id)
		}
	}
	r.cfg.Metrics.SetActiveSessions(len(r.stores))
	r.mu.Unlock()

	for id, s := range idle {
		r.close(id, s)
	}
	if len(idle) > 0 {
		r.cfg.Logger.Info().Int("evicted", len(idle)).Msg("evicted idle sessions")
	}
	return len(idle)
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[uuid.UUID]*Store)
	r.cfg.Metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for id, s := range stores {
		r.close(id, s)
	}
}

func (r *Registry) close(sessionID uuid.UUID, s *Store) {
	s.Close()
	if r.cfg.OnEvict != nil {
		r.cfg.OnEvict(sessionID)
	}
}
