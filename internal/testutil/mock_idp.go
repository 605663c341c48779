package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPath is the token endpoint served by MockIdP.
const TokenPath = "/oauth2/token"

// MockIdP is an OAuth2/OIDC identity provider supporting the password and
// refresh_token grants.
type MockIdP struct {
	server *httptest.Server
	mu     sync.Mutex

	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// ExpiresIn is returned as expires_in in seconds. Zero omits the field.
	ExpiresIn int

	// JWTLifetime makes access tokens HS256 JWTs with an exp claim this far
	// in the future. Zero issues opaque tokens.
	JWTLifetime time.Duration

	// OmitRefreshToken leaves refresh_token out of responses.
	OmitRefreshToken bool

	issued        int
	refreshTokens map[string]bool

	// Tracking
	PasswordGrants int
	RefreshGrants  int
	LastScope      string
	LastRefresh    string
}

// NewMockIdP creates and starts a mock identity provider with default
// credentials "client"/"secret" and user "user"/"pass".
func NewMockIdP() *MockIdP {
	mock := &MockIdP{
		ClientID:      "client",
		ClientSecret:  "secret",
		Username:      "user",
		Password:      "pass",
		ExpiresIn:     3600,
		refreshTokens: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, mock.handleToken)
	mux.HandleFunc("/.well-known/openid-configuration", mock.handleDiscovery)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL, which is also its issuer.
func (m *MockIdP) URL() string {
	return m.server.URL
}

// TokenURL returns the token endpoint URL.
func (m *MockIdP) TokenURL() string {
	return m.server.URL + TokenPath
}

// Close shuts down the mock server.
func (m *MockIdP) Close() {
	m.server.Close()
}

// Grants returns the number of password and refresh grants served.
func (m *MockIdP) Grants() (password, refresh int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PasswordGrants, m.RefreshGrants
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (m *MockIdP) RevokeRefreshTokens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens = make(map[string]bool)
}

func (m *MockIdP) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                 m.server.URL,
		"authorization_endpoint": m.server.URL + "/oauth2/authorize",
		"token_endpoint":         m.TokenURL(),
		"jwks_uri":               m.server.URL + "/.well-known/jwks.json",
		"grant_types_supported":  []string{"password", "refresh_token"},
		"scopes_supported":       []string{"openid"},
	})
}

func (m *MockIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if clientID != m.ClientID || clientSecret != m.ClientSecret {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	m.LastScope = r.PostForm.Get("scope")

	switch r.PostForm.Get("grant_type") {
	case "password":
		m.PasswordGrants++
		if r.PostForm.Get("username") != m.Username || r.PostForm.Get("password") != m.Password {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
	case "refresh_token":
		m.RefreshGrants++
		rt := r.PostForm.Get("refresh_token")
		m.LastRefresh = rt
		if !m.refreshTokens[rt] {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		delete(m.refreshTokens, rt)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	m.issued++
	access, err := m.accessToken()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"scope":        m.LastScope,
	}
	if m.ExpiresIn > 0 {
		resp["expires_in"] = m.ExpiresIn
	}
	if !m.OmitRefreshToken {
		refresh := fmt.Sprintf("refresh-%d", m.issued)
		m.refreshTokens[refresh] = true
		resp["refresh_token"] = refresh
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// accessToken must be called with m.mu held.
func (m *MockIdP) accessToken() (string, error) {
	if m.JWTLifetime == 0 {
		return fmt.Sprintf("access-%d", m.issued), nil
	}
	claims := jwt.MapClaims{
		"iss": m.server.URL,
		"sub": m.Username,
		"jti": fmt.Sprintf("access-%d", m.issued),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(m.JWTLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.ClientSecret))
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
