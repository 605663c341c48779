package noark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/noark5-client/internal/testutil"
	"github.com/Sternrassler/noark5-client/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestCodeLists(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	mock.SetCodeList("Journalpost", "journalstatus",
		testutil.CodeValue{Code: "J", Name: "Journalført"},
		testutil.CodeValue{Code: "F", Name: "Ferdigstilt fra saksbehandler"},
	)
	mock.SetCodeList("Dokument", "dokumenttype", testutil.CodeValue{Code: "B", Name: "Brev"})

	client := newTestClient(t, mock)

	all, err := client.CodeLists(context.Background(), "", "")
	if err != nil {
		t.Fatalf("CodeLists failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 code lists, got %d", len(all))
	}

	list, err := client.CodeList(context.Background(), CodeListJournalstatus)
	if err != nil {
		t.Fatalf("CodeList failed: %v", err)
	}
	if len(list.Values) != 2 || !list.Contains("J") || list.Contains("X") {
		t.Errorf("Unexpected journalstatus list: %+v", list)
	}
}

func TestCodeList_NotFound(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()

	client := newTestClient(t, mock)
	_, err := client.CodeList(context.Background(), CodeListMappetype)
	if !errors.Is(err, ErrCodeListNotFound) {
		t.Errorf("Expected ErrCodeListNotFound, got %v", err)
	}
}

func TestPutAndDeleteCodeListValue(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	client := newTestClient(t, mock)
	ctx := context.Background()

	saved, err := client.PutCodeListValue(ctx, CodeListDokumenttype, CodeValue{Code: "T", Name: "Tilbud", Description: "Description"})
	if err != nil {
		t.Fatalf("PutCodeListValue failed: %v", err)
	}
	if saved.Code != "T" || saved.Name != "Tilbud" {
		t.Errorf("Saved = %+v", saved)
	}

	if _, err := client.PutCodeListValue(ctx, CodeListDokumenttype, CodeValue{Code: "T", Name: "Tilbud", Description: "New Description"}); err != nil {
		t.Fatalf("PutCodeListValue update failed: %v", err)
	}
	values := mock.CodeList("Dokument", "dokumenttype")
	if len(values) != 1 || values[0].Description != "New Description" {
		t.Errorf("Values after update = %+v", values)
	}

	if err := client.DeleteCodeListValue(ctx, CodeListDokumenttype, "T"); err != nil {
		t.Fatalf("DeleteCodeListValue failed: %v", err)
	}
	if values := mock.CodeList("Dokument", "dokumenttype"); len(values) != 0 {
		t.Errorf("Values after delete = %+v", values)
	}

	if err := client.DeleteCodeListValue(ctx, CodeListDokumenttype, "T"); err == nil {
		t.Error("Expected error deleting unknown code")
	}
}

func TestPutCodeListValue_RequiresCode(t *testing.T) {
	client, _ := New(DefaultConfig("https://archive.example.org"))
	client.SetAuthToken(testToken)

	if _, err := client.PutCodeListValue(context.Background(), CodeListSkjerming, CodeValue{Name: "x"}); err == nil {
		t.Error("Expected error for empty code")
	}
}

func TestCodeLists_Cached(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArchive()
	defer mock.Close()
	mock.SetCodeList("Dokument", "dokumenttype", testutil.CodeValue{Code: "B", Name: "Brev"})

	cfg := DefaultConfig(mock.URL())
	cfg.CodeListCache = cache.NewManager(redisClient, time.Minute)
	client, _ := New(cfg)
	client.SetAuthToken(testToken)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.CodeList(ctx, CodeListDokumenttype); err != nil {
			t.Fatalf("CodeList failed: %v", err)
		}
	}
	if n := mock.CountRequests("/code-lists"); n != 1 {
		t.Errorf("Expected 1 code-list request with cache, got %d", n)
	}

	// A put through the client invalidates the cached list.
	if _, err := client.PutCodeListValue(ctx, CodeListDokumenttype, CodeValue{Code: "T", Name: "Tilbud"}); err != nil {
		t.Fatalf("PutCodeListValue failed: %v", err)
	}
	list, err := client.CodeList(ctx, CodeListDokumenttype)
	if err != nil {
		t.Fatalf("CodeList failed: %v", err)
	}
	if !list.Contains("T") {
		t.Error("Cached list not refreshed after put")
	}
	if n := mock.CountRequests("/code-lists"); n != 2 {
		t.Errorf("Expected 2 code-list requests, got %d", n)
	}
}

func TestCodeLists_CachedFieldLookupInvalidated(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockArchive()
	defer mock.Close()
	mock.SetCodeList("Dokument", "dokumenttype", testutil.CodeValue{Code: "B", Name: "Brev"})

	cfg := DefaultConfig(mock.URL())
	cfg.CodeListCache = cache.NewManager(redisClient, time.Minute)
	client, _ := New(cfg)
	client.SetAuthToken(testToken)
	ctx := context.Background()

	if _, err := client.CodeLists(ctx, "", "dokumenttype"); err != nil {
		t.Fatalf("CodeLists failed: %v", err)
	}
	if _, err := client.PutCodeListValue(ctx, CodeListDokumenttype, CodeValue{Code: "T", Name: "Tilbud"}); err != nil {
		t.Fatalf("PutCodeListValue failed: %v", err)
	}

	lists, err := client.CodeLists(ctx, "", "dokumenttype")
	if err != nil {
		t.Fatalf("CodeLists failed: %v", err)
	}
	if len(lists) != 1 || !lists[0].Contains("T") {
		t.Errorf("Field lookup served stale values after put: %+v", lists)
	}
	if n := mock.CountRequests("/code-lists"); n != 2 {
		t.Errorf("Expected 2 code-list requests, got %d", n)
	}
}
