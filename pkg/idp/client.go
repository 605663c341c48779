// Package idp exchanges credentials for OAuth2 access tokens at an identity
// provider. It supports the resource-owner password grant and the refresh
// grant, with the token endpoint either configured directly or discovered
// from an OpenID Connect issuer.
package idp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var tokenExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "noark_token_exchanges_total",
	Help: "Total token exchanges with the identity provider by grant and outcome",
}, []string{"grant", "outcome"})

// Grant names used in logs and metrics.
const (
	GrantPassword = "password"
	GrantRefresh  = "refresh_token"
)

// TokenPath is appended to the identity-provider address when neither a
// token URL nor an issuer is configured.
const TokenPath = "/oauth2/token"

// DefaultLifetime applies when neither expires_in nor a JWT exp claim tell
// how long an access token lives.
const DefaultLifetime = 60 * time.Minute

// Token is the result of a token exchange.
type Token struct {
	AccessToken  string
	RefreshToken string

	// Lifetime is how long AccessToken stays valid from the moment it was issued.
	Lifetime time.Duration
}

// Exchanger performs token exchanges.
type Exchanger interface {
	PasswordGrant(ctx context.Context) (*Token, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*Token, error)
}

// Config holds the identity-provider configuration.
type Config struct {
	// Address is the identity-provider base URL. The token endpoint is
	// Address + TokenPath unless TokenURL or Issuer is set.
	Address string

	// TokenURL overrides the token endpoint.
	TokenURL string

	// Issuer enables OpenID Connect discovery of the token endpoint.
	Issuer string

	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// Scopes requested with the password grant. Defaults to "openid".
	Scopes []string

	// DefaultLifetime is used when the response does not carry a lifetime.
	DefaultLifetime time.Duration

	// HTTPClient is used for discovery and token requests.
	HTTPClient *http.Client
}

// Client is an identity-provider client.
type Client struct {
	oauth   *oauth2.Config
	config  Config
	http    *http.Client
	refresh *http.Client
	logger  zerolog.Logger
}

var _ Exchanger = (*Client)(nil)

// New creates an identity-provider client. With an Issuer configured the
// token endpoint is discovered, which requires network access.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.Address == "" && cfg.TokenURL == "" && cfg.Issuer == "" {
		return nil, fmt.Errorf("identity provider address, token url or issuer is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID}
	}
	if cfg.DefaultLifetime <= 0 {
		cfg.DefaultLifetime = DefaultLifetime
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := logging.NewLogger(logging.ComponentIdP)

	endpoint, err := resolveEndpoint(oidc.ClientContext(ctx, httpClient), cfg)
	if err != nil {
		return nil, err
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	logger.Debug().
		Str("token_url", endpoint.TokenURL).
		Strs("scopes", cfg.Scopes).
		Msg("Identity provider configured")

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		config:  cfg,
		http:    httpClient,
		refresh: withScope(httpClient, strings.Join(cfg.Scopes, " ")),
		logger:  logger,
	}, nil
}

func resolveEndpoint(ctx context.Context, cfg Config) (oauth2.Endpoint, error) {
	switch {
	case cfg.TokenURL != "":
		return oauth2.Endpoint{TokenURL: cfg.TokenURL}, nil
	case cfg.Issuer != "":
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return oauth2.Endpoint{}, fmt.Errorf("discover identity provider %s: %w", cfg.Issuer, err)
		}
		return provider.Endpoint(), nil
	default:
		return oauth2.Endpoint{TokenURL: strings.TrimRight(cfg.Address, "/") + TokenPath}, nil
	}
}

// TokenURL returns the token endpoint in use.
func (c *Client) TokenURL() string {
	return c.oauth.Endpoint.TokenURL
}

// PasswordGrant exchanges the configured username and password for tokens.
func (c *Client) PasswordGrant(ctx context.Context) (*Token, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.withHTTPClient(ctx), c.config.Username, c.config.Password)
	if err != nil {
		return nil, c.fail(GrantPassword, err)
	}
	return c.succeed(GrantPassword, tok), nil
}

// RefreshGrant exchanges a refresh token for new tokens. If the provider
// does not rotate the refresh token, the old one is returned again.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, c.fail(GrantRefresh, errors.New("refresh token is empty"))
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.refresh)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, c.fail(GrantRefresh, err)
	}
	return c.succeed(GrantRefresh, tok), nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// withScope returns a copy of hc whose refresh_token grants carry scope.
// oauth2.TokenSource sends refresh requests without one.
func withScope(hc *http.Client, scope string) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out := *hc
	out.Transport = &scopeTransport{base: base, scope: scope}
	return &out
}

type scopeTransport struct {
	base  http.RoundTripper
	scope string
}

func (t *scopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	if form, err := url.ParseQuery(string(body)); err == nil &&
		form.Get("grant_type") == GrantRefresh && !form.Has("scope") {
		form.Set("scope", t.scope)
		body = []byte(form.Encode())
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(out)
}

func (c *Client) succeed(grant string, tok *oauth2.Token) *Token {
	tokenExchangesTotal.WithLabelValues(grant, "success").Inc()

	lifetime, source := Lifetime(tok, c.config.DefaultLifetime)
	c.logger.Info().
		Str("grant", grant).
		Dur("lifetime", lifetime).
		Str("lifetime_source", source).
		Bool("refresh_token", tok.RefreshToken != "").
		Msg("Token exchange succeeded")

	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Lifetime:     lifetime,
	}
}

func (c *Client) fail(grant string, err error) error {
	tokenExchangesTotal.WithLabelValues(grant, "failure").Inc()

	event := c.logger.Error().Err(err).Str("grant", grant)
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		event = event.Str("error_code", retrieveErr.ErrorCode)
		if retrieveErr.Response != nil {
			event = event.Int("status", retrieveErr.Response.StatusCode)
		}
	}
	event.Msg("Token exchange failed")

	return fmt.Errorf("%s grant: %w", grant, err)
}
