package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/noark5-client/internal/testutil"
	"github.com/Sternrassler/noark5-client/pkg/idp"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeClock is a settable clock shared with the Manager under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	idp     *testutil.MockIdP
	client  *noark.Client
	clock   *fakeClock
	manager *Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	mockIdP := testutil.NewMockIdP()
	t.Cleanup(mockIdP.Close)

	exchanger, err := idp.New(context.Background(), idp.Config{
		TokenURL:     mockIdP.TokenURL(),
		ClientID:     mockIdP.ClientID,
		ClientSecret: mockIdP.ClientSecret,
		Username:     mockIdP.Username,
		Password:     mockIdP.Password,
	})
	require.NoError(t, err)

	client, err := noark.New(noark.DefaultConfig("https://archive.example.org"))
	require.NoError(t, err)

	clock := newFakeClock()
	manager, err := NewManager(client, exchanger, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)

	return &fixture{idp: mockIdP, client: client, clock: clock, manager: manager}
}

func TestNewManager_Validation(t *testing.T) {
	client, err := noark.New(noark.DefaultConfig("https://archive.example.org"))
	require.NoError(t, err)

	_, err = NewManager(nil, &stubExchanger{})
	assert.ErrorContains(t, err, "archive client is required")

	_, err = NewManager(client, nil)
	assert.ErrorContains(t, err, "token exchanger is required")
}

func TestGetAuthenticatedClient_FirstCallUsesPasswordGrant(t *testing.T) {
	f := newFixture(t)

	client, err := f.manager.GetAuthenticatedClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, f.client, client)

	state := f.manager.Session()
	require.NotNil(t, state)
	assert.Equal(t, state.AccessToken, client.AuthToken())
	assert.NotEmpty(t, state.RefreshToken)
	assert.Equal(t, f.clock.Now().Add(time.Hour), state.ExpiresAt)
	assert.Equal(t, "openid", f.idp.LastScope)

	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password)
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_ReusesValidToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	first := f.manager.Session()

	f.clock.Advance(30 * time.Minute)
	client, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, client.AuthToken())
	assert.Equal(t, first, f.manager.Session())

	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password, "expected exactly one exchange")
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_ReusesAtExactExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	_, refresh := f.idp.Grants()
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_RefreshesExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	before := f.manager.Session()

	f.clock.Advance(time.Hour + time.Second)
	client, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	after := f.manager.Session()

	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password)
	assert.Equal(t, 1, refresh, "expected exactly one refresh grant")
	assert.Equal(t, before.RefreshToken, f.idp.LastRefresh)
	assert.Equal(t, "openid", f.idp.LastScope)

	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	assert.Equal(t, f.clock.Now().Add(time.Hour), after.ExpiresAt)
	assert.Equal(t, after.AccessToken, client.AuthToken())
}

func TestGetAuthenticatedClient_PasswordGrantWithoutRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.idp.OmitRefreshToken = true
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.manager.Session().RefreshToken)

	f.clock.Advance(2 * time.Hour)
	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	password, refresh := f.idp.Grants()
	assert.Equal(t, 2, password)
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_RefreshFailurePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	before := f.manager.Session()

	f.idp.RevokeRefreshTokens()
	f.clock.Advance(2 * time.Hour)

	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.Error(t, err)

	var retrieveErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &retrieveErr), "expected *oauth2.RetrieveError, got %v", err)
	assert.Equal(t, "invalid_grant", retrieveErr.ErrorCode)

	assert.Equal(t, before, f.manager.Session(), "failed refresh must not change the session")

	password, _ := f.idp.Grants()
	assert.Equal(t, 1, password, "no fallback to password grant after a rejected refresh")
}

func TestGetAuthenticatedClient_PasswordFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.idp.Password = "changed"

	client, err := f.manager.GetAuthenticatedClient(context.Background())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Nil(t, f.manager.Session())
	assert.Empty(t, f.client.AuthToken())
}

func TestGetAuthenticatedClient_ConcurrentCallersShareOneExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.GetAuthenticatedClient(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password)
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_RestoresFromStore(t *testing.T) {
	store := NewMemoryStore()
	clock := newFakeClock()
	require.NoError(t, store.Save(context.Background(), &State{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    clock.Now().Add(time.Minute),
	}))

	f := newFixture(t, WithStore(store))

	client, err := f.manager.GetAuthenticatedClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored-access", client.AuthToken())

	password, refresh := f.idp.Grants()
	assert.Equal(t, 0, password)
	assert.Equal(t, 0, refresh)
}

func TestGetAuthenticatedClient_PersistsToStore(t *testing.T) {
	store := NewMemoryStore()
	f := newFixture(t, WithStore(store))

	_, err := f.manager.GetAuthenticatedClient(context.Background())
	require.NoError(t, err)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.manager.Session(), stored)
}

func TestGetAuthenticatedClient_SharedStoreAdoptsRotatedTokens(t *testing.T) {
	store := NewMemoryStore()
	f := newFixture(t, WithStore(store))
	ctx := context.Background()

	otherClient, err := noark.New(noark.DefaultConfig("https://archive.example.org"))
	require.NoError(t, err)
	other, err := NewManager(otherClient, f.manager.exchanger, WithStore(store), WithClock(f.clock.Now))
	require.NoError(t, err)

	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	_, err = other.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	client, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	rotated := client.AuthToken()

	otherAuthed, err := other.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated, otherAuthed.AuthToken())
	assert.Equal(t, f.manager.Session(), other.Session())

	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password)
	assert.Equal(t, 1, refresh)
}

func TestGetAuthenticatedClient_ExpiredStoredSessionRefreshesWithStoredToken(t *testing.T) {
	store := NewMemoryStore()
	f := newFixture(t, WithStore(store))
	ctx := context.Background()

	otherClient, err := noark.New(noark.DefaultConfig("https://archive.example.org"))
	require.NoError(t, err)
	other, err := NewManager(otherClient, f.manager.exchanger, WithStore(store), WithClock(f.clock.Now))
	require.NoError(t, err)

	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	_, err = other.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	rotated := f.manager.Session()

	f.clock.Advance(2 * time.Hour)
	_, err = other.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	password, refresh := f.idp.Grants()
	assert.Equal(t, 1, password)
	assert.Equal(t, 2, refresh)
	assert.Equal(t, rotated.RefreshToken, f.idp.LastRefresh)
}

func TestInvalidate(t *testing.T) {
	store := NewMemoryStore()
	f := newFixture(t, WithStore(store))
	ctx := context.Background()

	_, err := f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)

	require.NoError(t, f.manager.Invalidate(ctx))
	assert.Nil(t, f.manager.Session())
	assert.Empty(t, f.client.AuthToken())

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.manager.GetAuthenticatedClient(ctx)
	require.NoError(t, err)
	password, _ := f.idp.Grants()
	assert.Equal(t, 2, password)
}

func TestGetAuthenticatedClient_StoreLoadFailure(t *testing.T) {
	client, err := noark.New(noark.DefaultConfig("https://archive.example.org"))
	require.NoError(t, err)

	exchanger := &stubExchanger{}
	manager, err := NewManager(client, exchanger, WithStore(failingStore{}))
	require.NoError(t, err)

	_, err = manager.GetAuthenticatedClient(context.Background())
	assert.ErrorContains(t, err, "load session")
	assert.Zero(t, exchanger.calls)
}

type stubExchanger struct {
	calls int
}

func (s *stubExchanger) PasswordGrant(context.Context) (*idp.Token, error) {
	s.calls++
	return &idp.Token{AccessToken: "a", Lifetime: time.Hour}, nil
}

func (s *stubExchanger) RefreshGrant(context.Context, string) (*idp.Token, error) {
	s.calls++
	return &idp.Token{AccessToken: "b", Lifetime: time.Hour}, nil
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*State, error) {
	return nil, errors.New("unavailable")
}

func (failingStore) Save(context.Context, *State) error {
	return errors.New("unavailable")
}

func (failingStore) Clear(context.Context) error {
	return errors.New("unavailable")
}
