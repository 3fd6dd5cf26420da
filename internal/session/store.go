package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dimitrije/washdesk-api/internal/metrics"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/rs/zerolog"
)

var ErrNotSignedIn = errors.New("not signed in")

const (
	DefaultResolveTimeout = 15 * time.Second
	msgLoadFailed         = "Failed to load user profile."
)

// AuthProvider is the authentication provider of one browser session.
type AuthProvider interface {
	SignIn(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(*models.Actor)) (func(), error)
}

type Resolver interface {
	Resolve(ctx context.Context, actor models.Actor) (*models.Profile, error)
}

type ProfileWriter interface {
	Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Actor   *models.Actor   `json:"actor"`
	Profile *models.Profile `json:"profile"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`

	IsSuperAdmin     bool `json:"is_super_admin"`
	IsAdmin          bool `json:"is_admin"`
	IsManager        bool `json:"is_manager"`
	IsSeniorEmployee bool `json:"is_senior_employee"`
	IsEmployee       bool `json:"is_employee"`
}

type Option func(*Store)

func WithEvaluator(e *rbac.Evaluator) Option {
	return func(s *Store) { s.evaluator = e }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithResolveTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Access) Option {
	return func(s *Store) { s.metrics = m }
}

// WithOnChange registers fn to run after every state change. It runs outside
// the store lock and must not block.
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// Store holds who is signed in on one browser session and what is known
// about them. It follows the provider's actor-change stream; every change
// starts a new generation and results of older generations are dropped.
type Store struct {
	auth           AuthProvider
	resolver       Resolver
	profiles       ProfileWriter
	evaluator      *rbac.Evaluator
	log            zerolog.Logger
	metrics        *metrics.Access
	onChange       func()
	resolveTimeout time.Duration

	mu         sync.RWMutex
	actor      *models.Actor
	profile    *models.Profile
	loading    bool
	errMsg     string
	generation uint64
	closed     bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
	lastActive  atomic.Int64
}

// NewStore subscribes to auth and starts loading until the provider reports
// the current actor.
func NewStore(auth AuthProvider, resolver Resolver, profiles ProfileWriter, opts ...Option) (*Store, error) {
	s := &Store{
		auth:           auth,
		resolver:       resolver,
		profiles:       profiles,
		log:            zerolog.Nop(),
		resolveTimeout: DefaultResolveTimeout,
		loading:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = rbac.NewEvaluator(rbac.DefaultMatrix(), s.log)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Touch()

	unsubscribe, err := auth.Subscribe(s.onActorChange)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.unsubscribe = unsubscribe
	return s, nil
}

func (s *Store) onActorChange(actor *models.Actor) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// The sign-out that follows a denial or a logout was already applied
	// locally; keep the error it left behind.
	if actor == nil && s.actor == nil && !s.loading {
		s.mu.Unlock()
		return
	}

	s.generation++
	gen := s.generation
	s.errMsg = ""
	s.profile = nil

	if actor == nil {
		s.actor = nil
		s.loading = false
		s.mu.Unlock()
		s.log.Debug().Msg("actor signed out")
		s.changed()
		return
	}

	a := *actor
	s.actor = &a
	s.loading = true
	s.wg.Add(1)
	s.mu.Unlock()
	s.changed()

	go s.resolve(gen, a)
}

type resolution struct {
	profile *models.Profile
	err     error
}

func (s *Store) resolve(gen uint64, actor models.Actor) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.resolveTimeout)
	defer cancel()

	done := make(chan resolution, 1)
	go func() {
		p, err := s.resolver.Resolve(ctx, actor)
		done <- resolution{profile: p, err: err}
	}()

	var res resolution
	select {
	case res = <-done:
	case <-ctx.Done():
		if s.ctx.Err() != nil {
			return
		}
		res.err = &services.ResolveError{Kind: services.KindLoadFailed, Message: msgLoadFailed, Err: ctx.Err()}
		s.metrics.IncBootstrapOutcome("timeout")
		s.log.Error().Str("actor_id", actor.ID).Dur("timeout", s.resolveTimeout).Msg("profile resolution timed out")
	}
	if res.err == nil && res.profile == nil {
		res.err = &services.ResolveError{Kind: services.KindLoadFailed, Message: msgLoadFailed}
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.log.Debug().Str("actor_id", actor.ID).Uint64("generation", gen).Msg("discarding stale profile resolution")
		return
	}

	signOut := false
	if res.err != nil {
		s.errMsg = msgLoadFailed
		var re *services.ResolveError
		if errors.As(res.err, &re) {
			s.errMsg = re.Message
			signOut = re.SignsOut()
		}
		s.actor = nil
		s.profile = nil
	} else {
		s.profile = res.profile.Clone()
	}
	s.loading = false
	s.mu.Unlock()
	s.changed()

	if signOut {
		if err := s.auth.SignOut(s.ctx); err != nil {
			s.log.Error().Err(err).Str("actor_id", actor.ID).Msg("failed to sign out denied actor")
		}
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Profile: s.profile.Clone(),
		Loading: s.loading,
		Error:   s.errMsg,
	}
	if s.actor != nil {
		a := *s.actor
		snap.Actor = &a
	}
	if s.profile != nil {
		snap.IsSuperAdmin = s.profile.Role == models.RoleSuperAdmin
		snap.IsAdmin = s.profile.Role == models.RoleAdmin
		snap.IsManager = s.profile.Role == models.RoleManager
		snap.IsSeniorEmployee = s.profile.Role == models.RoleSeniorEmployee
		snap.IsEmployee = s.profile.Role == models.RoleEmployee
	}
	return snap
}

// SignInWithGoogle starts the provider sign-in and returns the consent URL.
// The signed-in actor arrives through the subscription.
func (s *Store) SignInWithGoogle(ctx context.Context) (string, error) {
	url, err := s.auth.SignIn(ctx)
	if err != nil {
		s.mu.Lock()
		s.errMsg = err.Error()
		s.loading = false
		s.mu.Unlock()
		s.changed()
		return "", err
	}
	return url, nil
}

func (s *Store) Logout(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		s.mu.Lock()
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.changed()
		return err
	}

	s.mu.Lock()
	s.generation++
	s.actor = nil
	s.profile = nil
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()
	s.changed()
	return nil
}

// UpdateProfile writes u to the signed-in actor's profile, clears the
// onboarding flag and merges the change into the held profile. Write
// failures are returned and leave the held profile untouched.
func (s *Store) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Profile, error) {
	s.mu.RLock()
	actor := s.actor
	s.mu.RUnlock()
	if actor == nil {
		return nil, ErrNotSignedIn
	}

	if _, err := s.profiles.Update(ctx, actor.ID, u); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.actor == nil || s.actor.ID != actor.ID || s.profile == nil {
		s.mu.Unlock()
		return nil, ErrNotSignedIn
	}
	p := s.profile.Clone()
	u.Apply(p)
	s.profile = p
	s.mu.Unlock()
	s.changed()
	return p.Clone(), nil
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// HasPermission answers a permission question without side effects. Menus
// and guards ask it freely.
func (s *Store) HasPermission(resource rbac.Resource, action rbac.Action) bool {
	s.mu.RLock()
	profile := s.profile
	s.mu.RUnlock()

	return s.evaluator.HasPermission(profile, resource, action)
}

// Authorize is HasPermission for an action the caller is about to refuse,
// so a false result is counted as a denial.
func (s *Store) Authorize(resource rbac.Resource, action rbac.Action) bool {
	if s.HasPermission(resource, action) {
		return true
	}
	s.metrics.IncPermissionDenied(string(resource))
	return false
}

func (s *Store) Capabilities() map[rbac.Resource]rbac.Actions {
	s.mu.RLock()
	profile := s.profile
	s.mu.RUnlock()
	return s.evaluator.Capabilities(profile)
}

// Touch marks the session as used now.
func (s *Store) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Store) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Close unsubscribes from the provider and waits for in-flight resolutions
// to stop.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
}
