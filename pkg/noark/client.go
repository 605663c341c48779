// Package noark provides a minimal typed client for a Noark 5 archive web
// service: queries, transactions, code lists and file transfer, with
// error classification, optional retry and Prometheus metrics.
package noark

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/cache"
	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for archive API operations.
var (
	noarkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noark_requests_total",
		Help: "Total archive API requests by operation and status",
	}, []string{"operation", "status"})

	noarkRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "noark_request_duration_seconds",
		Help:    "Archive API request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	noarkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noark_errors_total",
		Help: "Total archive API errors by class",
	}, []string{"class"})
)

// DefaultAPIPath is the public Noark 5 API root on the archive server.
const DefaultAPIPath = "/rms/api/public/noark5/v1"

// maxErrorBody limits how much of an error response is kept in *Error.
const maxErrorBody = 4096

// Client is the archive web-service client.
type Client struct {
	httpClient *http.Client
	codeLists  *cache.Manager
	baseURL    string
	config     Config
	logger     zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Config holds the client configuration.
type Config struct {
	// ServerAddress is the archive server base URL, e.g. "https://archive.example.org".
	ServerAddress string

	// APIPath is appended to ServerAddress. Defaults to DefaultAPIPath.
	APIPath string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// ClientCertificate is presented during the TLS handshake when set.
	ClientCertificate *tls.Certificate

	// Retry controls retries of server and network failures. Disabled by default.
	Retry RetryConfig

	// CodeListCache caches code-list lookups when set.
	CodeListCache *cache.Manager
}

// DefaultConfig returns a default configuration for the given server.
func DefaultConfig(serverAddress string) Config {
	return Config{
		ServerAddress: serverAddress,
		APIPath:       DefaultAPIPath,
		UserAgent:     "noark5-client/1.0",
		Timeout:       30 * time.Second,
		Retry:         DefaultRetryConfig(),
	}
}

// New creates a new archive client. The client has no access token until
// SetAuthToken is called.
func New(cfg Config) (*Client, error) {
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if !strings.HasPrefix(cfg.ServerAddress, "http://") && !strings.HasPrefix(cfg.ServerAddress, "https://") {
		return nil, fmt.Errorf("server address must be an http(s) URL (got %q)", cfg.ServerAddress)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.APIPath == "" {
		cfg.APIPath = DefaultAPIPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ClientCertificate != nil {
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{*cfg.ClientCertificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		codeLists: cfg.CodeListCache,
		baseURL:   strings.TrimRight(cfg.ServerAddress, "/") + "/" + strings.Trim(cfg.APIPath, "/"),
		config:    cfg,
		logger:    logging.NewLogger(logging.ComponentNoark),
	}, nil
}

// SetAuthToken installs the bearer token used for subsequent requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// AuthToken returns the currently installed bearer token.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the API root all endpoints are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// requestBuilder creates a fresh request for every attempt so bodies can be replayed.
type requestBuilder func(ctx context.Context, url string) (*http.Request, error)

// do executes an API request with authentication, metrics, error
// classification and (when retryable) the configured retry policy.
// On success the caller owns the response body.
func (c *Client) do(ctx context.Context, operation, path string, retryable bool, build requestBuilder) (*http.Response, error) {
	token := c.AuthToken()
	if token == "" {
		return nil, fmt.Errorf("%s: %w", operation, ErrUnauthenticated)
	}

	startTime := time.Now()
	defer func() {
		noarkRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	url := c.baseURL + path

	c.logger.Debug().
		Str("operation", operation).
		Str("url", url).
		Msg("Executing archive request")

	var resp *http.Response
	attempt := func() error {
		req, err := build(ctx, url)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.config.UserAgent)
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("operation", operation).Msg("HTTP request failed")
			noarkErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			noarkRequestsTotal.WithLabelValues(operation, "network_error").Inc()
			return &Error{
				Operation: operation,
				Class:     ErrorClassNetwork,
				Message:   "request failed",
				Err:       err,
			}
		}

		status := strconv.Itoa(r.StatusCode)
		noarkRequestsTotal.WithLabelValues(operation, status).Inc()

		if r.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
			r.Body.Close()

			class := classifyStatus(r.StatusCode)
			noarkErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("operation", operation).
				Int("status", r.StatusCode).
				Str("error_class", string(class)).
				Msg("Archive request error")

			return &Error{
				Operation:  operation,
				StatusCode: r.StatusCode,
				Class:      class,
				Message:    r.Status,
				Body:       strings.TrimSpace(string(body)),
			}
		}

		resp = r
		return nil
	}

	retry := RetryConfig{MaxAttempts: 1}
	if retryable {
		retry = c.config.Retry
	}
	if err := retryWithBackoff(ctx, retry, c.logger, attempt, classifyError); err != nil {
		return nil, err
	}
	return resp, nil
}

// postJSON sends in as a JSON body and decodes the JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) postJSON(ctx context.Context, operation, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, operation, path, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method, operation, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
	}

	// Transactions are not idempotent; everything else sent as JSON is.
	retryable := operation != opTransaction

	resp, err := c.do(ctx, operation, path, retryable, func(ctx context.Context, url string) (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

// Operation names used for metrics, logs and errors.
const (
	opQuery           = "query"
	opTransaction     = "transaction"
	opCodeLists       = "code_lists"
	opPutCodeValue    = "put_code_value"
	opDeleteCodeValue = "delete_code_value"
	opUpload          = "upload"
	opDownload        = "download"
)
