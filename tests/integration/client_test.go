//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/noark5-client/internal/samples"
	"github.com/Sternrassler/noark5-client/internal/testutil"
	"github.com/Sternrassler/noark5-client/pkg/cache"
	"github.com/Sternrassler/noark5-client/pkg/idp"
	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/Sternrassler/noark5-client/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// environment wires an archive client, identity provider and Redis-backed
// session store the way the sample command does.
type environment struct {
	redis    *redis.Client
	archive  *testutil.MockArchive
	identity *testutil.MockIdP
	client   *noark.Client
	idp      *idp.Client
}

func newEnvironment(t *testing.T) *environment {
	t.Helper()

	redisClient, cleanup := setupRedis(t)
	t.Cleanup(cleanup)

	archive := testutil.NewMockArchive()
	t.Cleanup(archive.Close)

	identity := testutil.NewMockIdP()
	t.Cleanup(identity.Close)

	cfg := noark.DefaultConfig(archive.URL())
	cfg.CodeListCache = cache.NewManager(redisClient, time.Minute)
	client, err := noark.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create archive client: %v", err)
	}

	exchanger, err := idp.New(context.Background(), idp.Config{
		Issuer:       identity.URL(),
		ClientID:     identity.ClientID,
		ClientSecret: identity.ClientSecret,
		Username:     identity.Username,
		Password:     identity.Password,
	})
	if err != nil {
		t.Fatalf("Failed to create identity provider client: %v", err)
	}

	return &environment{
		redis:    redisClient,
		archive:  archive,
		identity: identity,
		client:   client,
		idp:      exchanger,
	}
}

func (e *environment) newManager(t *testing.T, opts ...session.Option) *session.Manager {
	t.Helper()

	store := session.NewRedisStore(e.redis, "integration", logging.NewLogger(logging.ComponentSession))
	manager, err := session.NewManager(e.client, e.idp, append([]session.Option{session.WithStore(store)}, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create session manager: %v", err)
	}
	return manager
}

// TestSession_SharedAcrossManagers verifies that a second manager on the same
// Redis store reuses the persisted session instead of logging in again.
func TestSession_SharedAcrossManagers(t *testing.T) {
	env := newEnvironment(t)
	ctx := context.Background()

	first := env.newManager(t)
	if _, err := first.GetAuthenticatedClient(ctx); err != nil {
		t.Fatalf("First manager failed: %v", err)
	}

	second := env.newManager(t)
	client, err := second.GetAuthenticatedClient(ctx)
	if err != nil {
		t.Fatalf("Second manager failed: %v", err)
	}

	password, refresh := env.identity.Grants()
	if password != 1 || refresh != 0 {
		t.Errorf("Grants = %d password, %d refresh; want 1, 0", password, refresh)
	}
	if client.AuthToken() != first.Session().AccessToken {
		t.Errorf("Second manager token = %q, want %q", client.AuthToken(), first.Session().AccessToken)
	}
}

// TestSession_RefreshPersistsRotatedToken verifies that a refresh stores the
// rotated refresh token for the next process.
func TestSession_RefreshPersistsRotatedToken(t *testing.T) {
	env := newEnvironment(t)
	ctx := context.Background()

	now := time.Now()
	clock := func() time.Time { return now }

	manager := env.newManager(t, session.WithClock(clock))
	if _, err := manager.GetAuthenticatedClient(ctx); err != nil {
		t.Fatalf("GetAuthenticatedClient failed: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := manager.GetAuthenticatedClient(ctx); err != nil {
		t.Fatalf("GetAuthenticatedClient after expiry failed: %v", err)
	}
	if _, refresh := env.identity.Grants(); refresh != 1 {
		t.Fatalf("Expected 1 refresh grant, got %d", refresh)
	}

	restored := env.newManager(t, session.WithClock(clock))
	if _, err := restored.GetAuthenticatedClient(ctx); err != nil {
		t.Fatalf("Restored manager failed: %v", err)
	}
	if got, want := restored.Session().RefreshToken, manager.Session().RefreshToken; got != want {
		t.Errorf("Restored refresh token = %q, want %q", got, want)
	}
	if password, refresh := env.identity.Grants(); password != 1 || refresh != 1 {
		t.Errorf("Grants = %d password, %d refresh; want 1, 1", password, refresh)
	}
}

// TestCodeListCache_Flow tests Cache Miss → Service → Cache Hit → Invalidate on write.
func TestCodeListCache_Flow(t *testing.T) {
	env := newEnvironment(t)
	ctx := context.Background()
	env.archive.SetCodeList("Dokument", "dokumenttype", testutil.CodeValue{Code: "Brev"})

	client, err := env.newManager(t).GetAuthenticatedClient(ctx)
	if err != nil {
		t.Fatalf("GetAuthenticatedClient failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		list, err := client.CodeList(ctx, noark.CodeListDokumenttype)
		if err != nil {
			t.Fatalf("CodeList %d failed: %v", i, err)
		}
		if !list.Contains("Brev") {
			t.Errorf("CodeList %d = %+v, want Brev", i, list)
		}
	}
	if n := env.archive.CountRequests("/code-lists"); n != 1 {
		t.Errorf("Expected 1 code-list request, got %d", n)
	}

	if _, err := client.PutCodeListValue(ctx, noark.CodeListDokumenttype, noark.CodeValue{Code: "Notat"}); err != nil {
		t.Fatalf("PutCodeListValue failed: %v", err)
	}

	list, err := client.CodeList(ctx, noark.CodeListDokumenttype)
	if err != nil {
		t.Fatalf("CodeList after write failed: %v", err)
	}
	if !list.Contains("Notat") {
		t.Errorf("Cached list not invalidated after write: %+v", list)
	}
	if n := env.archive.CountRequests("/code-lists"); n != 2 {
		t.Errorf("Expected 2 code-list requests after invalidation, got %d", n)
	}
}

// TestSamples_FullRun runs every sample against the mock archive with the
// Redis-backed session and code-list cache.
func TestSamples_FullRun(t *testing.T) {
	env := newEnvironment(t)
	env.archive.Token = "access-1"

	systemID := env.archive.AddObject("Klassifikasjonssystem", map[string]any{"tittel": "Klassifikasjonssystem"})
	env.archive.AddObject("Arkivdel", map[string]any{
		"tittel":                          "eByggesak",
		"refPrimaerKlassifikasjonssystem": systemID,
	})

	testDoc := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(testDoc, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}

	config := samples.DefaultConfig(testDoc)
	config.DownloadDir = t.TempDir()
	runner := samples.New(env.newManager(t), config)
	if err := runner.Run(context.Background(), samples.All); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if password, _ := env.identity.Grants(); password != 1 {
		t.Errorf("Expected 1 password grant for all samples, got %d", password)
	}
}
