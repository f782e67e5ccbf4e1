// Package session tracks whether the user is signed in.
//
// The Manager moves through Unknown -> CheckingAuth -> Authenticated or
// Unauthenticated. Every operation that starts a new transition supersedes
// the ones still in flight, so a late response from an abandoned login can
// never overwrite a logout that happened meanwhile.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/existflow/sockmatch/internal/api"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/model"
)

// State of the session
type State int

const (
	Unknown State = iota
	CheckingAuth
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case CheckingAuth:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// ErrSuperseded is returned when a newer session operation (usually a
// logout) started while this one was waiting on the network
var ErrSuperseded = errors.New("session changed while the request was in flight")

// Authenticator is the subset of the auth API the session needs
type Authenticator interface {
	Register(ctx context.Context, creds model.Credentials) (*model.User, error)
	Login(ctx context.Context, creds model.Credentials) (*model.Token, error)
	Me(ctx context.Context) (*model.User, error)
}

// TokenStore persists the bearer token and the tutorial flag
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Get(ctx context.Context) (string, error)
	Remove(ctx context.Context) error
	TutorialCompleted(ctx context.Context) (bool, error)
	SetTutorialCompleted(ctx context.Context, done bool) error
}

// Snapshot is the observable session state. User is set only when
// State is Authenticated.
type Snapshot struct {
	State State
	User  *model.User
}

// Manager owns the session state
type Manager struct {
	auth   Authenticator
	tokens TokenStore

	mu     sync.Mutex
	state  State
	user   *model.User
	gen    uint64
	subs   map[int]func(Snapshot)
	nextID int
}

// New creates a manager in the Unknown state
func New(auth Authenticator, tokens TokenStore) *Manager {
	return &Manager{
		auth:   auth,
		tokens: tokens,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current state
func (m *Manager) State() State {
	return m.Snapshot().State
}

// User returns the signed in user, or nil
func (m *Manager) User() *model.User {
	return m.Snapshot().User
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Start resolves the initial state from the stored token. It never fails:
// any problem reading the token or validating it with the server results
// in Unauthenticated and a cleared token.
func (m *Manager) Start(ctx context.Context) Snapshot {
	gen := m.begin(CheckingAuth)

	token, err := m.tokens.Get(ctx)
	if err != nil {
		logger.Warn("Reading stored token failed", logger.F("error", err))
		m.expire(ctx, gen)
		return m.Snapshot()
	}
	if token == "" {
		m.finish(gen, Unauthenticated, nil)
		return m.Snapshot()
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		logger.Info("Stored token rejected", logger.F("kind", api.KindOf(err).String()))
		m.expire(ctx, gen)
		return m.Snapshot()
	}

	m.finish(gen, Authenticated, user)
	logger.Info("Session restored", logger.F("user_id", user.ID))
	return m.Snapshot()
}

// Login exchanges credentials for a token, persists it and loads the user.
// On failure the state is Unauthenticated. If the token was saved but the
// user lookup failed, the token stays stored and the next Start decides.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	gen := m.bump()

	tok, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.finish(gen, Unauthenticated, nil)
		return nil, err
	}

	if err := m.saveToken(ctx, gen, tok.AccessToken); err != nil {
		m.finish(gen, Unauthenticated, nil)
		return nil, err
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		logger.Warn("Login succeeded but user lookup failed", logger.F("error", err))
		m.finish(gen, Unauthenticated, nil)
		return nil, err
	}

	if !m.finish(gen, Authenticated, user) {
		return nil, ErrSuperseded
	}
	logger.Info("Logged in", logger.F("user_id", user.ID))
	return user, nil
}

// Register creates the account and then logs in with the same credentials
func (m *Manager) Register(ctx context.Context, creds model.Credentials) (*model.User, error) {
	if _, err := m.auth.Register(ctx, creds); err != nil {
		return nil, err
	}
	return m.Login(ctx, creds)
}

// Logout clears the token and moves to Unauthenticated. It makes no network
// call and always succeeds locally, including when already logged out.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	if err := m.tokens.Remove(ctx); err != nil {
		logger.Warn("Removing token failed", logger.F("error", err))
	}
	changed := m.setLocked(Unauthenticated, nil)
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	if changed {
		logger.Info("Logged out")
		notify(subs, snap)
	}
}

// HandleAuthFailure logs the user out when err means the token is no longer
// accepted. It reports whether it did.
func (m *Manager) HandleAuthFailure(ctx context.Context, err error) bool {
	if !api.IsAuthFailure(err) {
		return false
	}
	logger.Info("Session expired", logger.F("error", err))
	m.Logout(ctx)
	return true
}

// TutorialCompleted reports the persisted tutorial flag
func (m *Manager) TutorialCompleted(ctx context.Context) (bool, error) {
	return m.tokens.TutorialCompleted(ctx)
}

// CompleteTutorial marks the tutorial as done
func (m *Manager) CompleteTutorial(ctx context.Context) error {
	return m.tokens.SetTutorialCompleted(ctx, true)
}

// ResetTutorial clears the tutorial flag
func (m *Manager) ResetTutorial(ctx context.Context) error {
	return m.tokens.SetTutorialCompleted(ctx, false)
}

// bump starts a new generation without changing state
func (m *Manager) bump() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	return m.gen
}

// begin starts a new generation and moves to state
func (m *Manager) begin(state State) uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	changed := m.setLocked(state, nil)
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	if changed {
		notify(subs, snap)
	}
	return gen
}

// finish commits the outcome of generation gen. It reports false when a
// newer operation has started since.
func (m *Manager) finish(gen uint64, state State, user *model.User) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	changed := m.setLocked(state, user)
	snap, subs := m.snapshotLocked(), m.subscribersLocked()
	m.mu.Unlock()

	if changed {
		notify(subs, snap)
	}
	return true
}

// expire clears the token and finishes as Unauthenticated
func (m *Manager) expire(ctx context.Context, gen uint64) {
	m.mu.Lock()
	current := gen == m.gen
	if current {
		if err := m.tokens.Remove(ctx); err != nil {
			logger.Warn("Removing token failed", logger.F("error", err))
		}
	}
	m.mu.Unlock()

	if current {
		m.finish(gen, Unauthenticated, nil)
	}
}

// saveToken persists token unless a newer operation has started
func (m *Manager) saveToken(ctx context.Context, gen uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return ErrSuperseded
	}
	return m.tokens.Save(ctx, token)
}

func (m *Manager) setLocked(state State, user *model.User) bool {
	changed := m.state != state || m.user != user
	m.state = state
	m.user = user
	return changed
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

func (m *Manager) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
