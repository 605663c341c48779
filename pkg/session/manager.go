// Package session hands out an archive client carrying a valid access token.
//
// The first call obtains tokens with a password grant. Later calls reuse the
// access token until it has expired, then exchange the refresh token for a
// new pair. Refresh happens lazily on use, never on a timer.
//
//	manager, err := session.NewManager(client, exchanger)
//	if err != nil {
//		return err
//	}
//	c, err := manager.GetAuthenticatedClient(ctx)
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/idp"
	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	tokenReusesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noark_token_reuses_total",
		Help: "Total calls served with an existing, unexpired access token",
	})

	tokenExpiry = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noark_session_expiry_timestamp_seconds",
		Help: "Unix time at which the current access token expires",
	})
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithStore persists the session in store. The default is a MemoryStore.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the session for one archive client.
type Manager struct {
	mu        sync.Mutex
	client    *noark.Client
	exchanger idp.Exchanger
	store     Store
	state     *State
	loaded    bool
	now       func() time.Time
	logger    zerolog.Logger
}

// NewManager creates a session manager. No token exchange happens until the
// first GetAuthenticatedClient call.
func NewManager(client *noark.Client, exchanger idp.Exchanger, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("archive client is required")
	}
	if exchanger == nil {
		return nil, fmt.Errorf("token exchanger is required")
	}

	m := &Manager{
		client:    client,
		exchanger: exchanger,
		store:     NewMemoryStore(),
		now:       time.Now,
		logger:    logging.NewLogger(logging.ComponentSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetAuthenticatedClient returns the archive client with a valid access
// token installed, obtaining or refreshing tokens first when needed.
// Token-exchange failures are returned unchanged in the error chain and the
// previous session is kept.
func (m *Manager) GetAuthenticatedClient(ctx context.Context) (*noark.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.current(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if state != nil && state.Expired(now) {
		state = m.latest(ctx, state)
	}

	switch {
	case state == nil:
		m.logger.Debug().Msg("No session, authenticating with password grant")
		state, err = m.exchange(ctx, idp.GrantPassword, "")
	case state.Expired(now) && !state.CanRefresh():
		m.logger.Info().
			Time("expired_at", state.ExpiresAt).
			Msg("Session expired without refresh token, authenticating with password grant")
		state, err = m.exchange(ctx, idp.GrantPassword, "")
	case state.Expired(now):
		m.logger.Debug().
			Time("expired_at", state.ExpiresAt).
			Msg("Access token expired, refreshing")
		state, err = m.exchange(ctx, idp.GrantRefresh, state.RefreshToken)
	default:
		tokenReusesTotal.Inc()
		m.logger.Debug().
			Dur("remaining", state.TimeUntilExpiry(now)).
			Msg("Reusing access token")
	}
	if err != nil {
		return nil, err
	}

	m.client.SetAuthToken(state.AccessToken)
	return m.client, nil
}

// Session returns a copy of the current session state, or nil before the
// first successful exchange.
func (m *Manager) Session() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Invalidate drops the session so the next call authenticates again.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = nil
	m.loaded = true
	m.client.SetAuthToken("")
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info().Msg("Session invalidated")
	return nil
}

// current must be called with m.mu held.
func (m *Manager) current(ctx context.Context) (*State, error) {
	if m.loaded {
		return m.state, nil
	}

	state, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		state = nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	default:
		m.logger.Debug().Time("expires_at", state.ExpiresAt).Msg("Session restored from store")
	}

	m.state = state
	m.loaded = true
	return state, nil
}

// latest must be called with m.mu held. It re-reads the store and adopts a
// session saved there after state, such as one rotated by another Manager
// sharing the store. Load failures keep state.
func (m *Manager) latest(ctx context.Context, state *State) *State {
	stored, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		return state
	case err != nil:
		m.logger.Warn().Err(err).Msg("Failed to reload session")
		return state
	case !stored.UpdatedAt.After(state.UpdatedAt):
		return state
	}

	m.logger.Debug().
		Time("expires_at", stored.ExpiresAt).
		Msg("Session updated elsewhere, adopting stored tokens")
	m.state = stored
	tokenExpiry.Set(float64(stored.ExpiresAt.Unix()))
	return stored
}

// exchange must be called with m.mu held.
func (m *Manager) exchange(ctx context.Context, grant, refreshToken string) (*State, error) {
	var (
		tok *idp.Token
		err error
	)
	if grant == idp.GrantRefresh {
		tok, err = m.exchanger.RefreshGrant(ctx, refreshToken)
	} else {
		tok, err = m.exchanger.PasswordGrant(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	now := m.now()
	state := &State{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(tok.Lifetime),
		UpdatedAt:    now,
	}

	if err := m.store.Save(ctx, state); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to persist session")
	}
	m.state = state
	tokenExpiry.Set(float64(state.ExpiresAt.Unix()))

	m.logger.Info().
		Str("grant", grant).
		Time("expires_at", state.ExpiresAt).
		Msg("Session updated")
	return state, nil
}
