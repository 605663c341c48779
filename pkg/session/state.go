package session

import "time"

// State is the token state of one authenticated session.
type State struct {
	// AccessToken is installed on the archive client as a bearer token.
	AccessToken string `json:"access_token"`

	// RefreshToken may be empty when the identity provider did not issue one.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is when AccessToken stops being valid.
	ExpiresAt time.Time `json:"expires_at"`

	// UpdatedAt is when the state was last obtained from the identity provider.
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether now is strictly after the expiration.
func (s *State) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CanRefresh reports whether a refresh grant is possible.
func (s *State) CanRefresh() bool {
	return s.RefreshToken != ""
}

// TimeUntilExpiry returns the remaining validity, or 0 once expired.
func (s *State) TimeUntilExpiry(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
