package noark

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/noark5-client/internal/testutil"
)

func TestUploadDownload(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	client := newTestClient(t, mock)
	ctx := context.Background()

	content := []byte("%PDF-1.4 test document")
	id, err := client.Upload(ctx, bytes.NewReader(content), "godkjenning.pdf")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if id == "" {
		t.Fatal("Upload returned empty id")
	}

	req := mock.Recorded()[0]
	if got := req.Header.Get("Content-Disposition"); !strings.Contains(got, `filename=godkjenning.pdf`) {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	var buf bytes.Buffer
	n, err := client.Download(ctx, id, &buf)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len(content)) || !bytes.Equal(buf.Bytes(), content) {
		t.Errorf("Downloaded %d bytes %q, want %q", n, buf.Bytes(), content)
	}
}

func TestUploadFile(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	client := newTestClient(t, mock)

	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := client.UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if data, ok := mock.File(id); !ok || string(data) != "pdf" {
		t.Errorf("Stored file = %q, %v", data, ok)
	}

	if _, err := client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDownload_NotFound(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	client := newTestClient(t, mock)

	var buf bytes.Buffer
	_, err := client.Download(context.Background(), "file-missing", &buf)

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 || apiErr.Class != ErrorClassClient {
		t.Errorf("Expected 404 client *Error, got %v", err)
	}
}

func TestUpload_NotRetried(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	mock.SetResponse("/upload", testutil.NewServerErrorResponse())

	cfg := DefaultConfig(mock.URL())
	cfg.Retry = fastRetryConfig(3)
	client, _ := New(cfg)
	client.SetAuthToken(testToken)

	if _, err := client.Upload(context.Background(), strings.NewReader("x"), "x.pdf"); err == nil {
		t.Fatal("Expected error")
	}
	if n := mock.CountRequests("/upload"); n != 1 {
		t.Errorf("Expected 1 upload request, got %d", n)
	}
}

func TestLoadClientCertificate_Errors(t *testing.T) {
	if _, err := LoadClientCertificate(filepath.Join(t.TempDir(), "missing.p12"), "pass"); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.p12")
	if err := os.WriteFile(path, []byte("not a pkcs12 file"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadClientCertificate(path, "pass")
	if err == nil || !strings.Contains(err.Error(), "decode client certificate") {
		t.Errorf("Expected decode error, got %v", err)
	}
}
