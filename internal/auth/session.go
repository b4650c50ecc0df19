package auth

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// SessionCookieName is the name of the admin session cookie.
	SessionCookieName = "sendernet_admin_session"
	// FlashCookieName carries one-shot notices across a redirect.
	FlashCookieName = "sendernet_flash"
)

// Login methods recorded on a session.
const (
	MethodToken = "token"
	MethodOIDC  = "oidc"
)

// SessionManager handles encrypted admin session cookies.
type SessionManager struct {
	sealer   *sealer
	duration time.Duration
}

// AdminSession is the session data stored in the encrypted cookie.
type AdminSession struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the best label for the signed-in operator.
func (s *AdminSession) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	default:
		return s.Subject
	}
}

// Flash is a notice shown once on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NewSessionManager creates a new session manager with the given encryption key.
// The key must be exactly 32 bytes for AES-256.
func NewSessionManager(key []byte, duration time.Duration, secure bool) (*SessionManager, error) {
	s, err := newSealer(key, secure)
	if err != nil {
		return nil, err
	}
	return &SessionManager{sealer: s, duration: duration}, nil
}

// Create creates an encrypted session cookie.
func (sm *SessionManager) Create(w http.ResponseWriter, session *AdminSession) error {
	now := time.Now()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(sm.duration)
	return sm.sealer.write(w, SessionCookieName, int(sm.duration.Seconds()), session)
}

// Get retrieves and validates the session from the cookie.
func (sm *SessionManager) Get(r *http.Request) (*AdminSession, error) {
	var session AdminSession
	if err := sm.sealer.read(r, SessionCookieName, &session); err != nil {
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session expired")
	}
	return &session, nil
}

// Clear clears the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	sm.sealer.clear(w, SessionCookieName)
}

// SetFlash stores flashes to be shown after the next redirect.
func (sm *SessionManager) SetFlash(w http.ResponseWriter, flashes ...Flash) error {
	if len(flashes) == 0 {
		return nil
	}
	return sm.sealer.write(w, FlashCookieName, 60, flashes)
}

// PopFlash returns any pending flashes and clears the cookie.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) []Flash {
	var flashes []Flash
	if err := sm.sealer.read(r, FlashCookieName, &flashes); err != nil {
		if err != ErrNoCookie {
			sm.sealer.clear(w, FlashCookieName)
		}
		return nil
	}
	sm.sealer.clear(w, FlashCookieName)
	return flashes
}
