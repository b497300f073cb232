// Package session holds the authenticated state of the school admin:
// the access token and the school being managed.
//
// It is set at sign-in (or invitation acceptance), read by every authenticated
// request and cleared on sign-out or when the backend answers 401.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Session struct {
	AccessToken string `json:"access_token,omitempty"`
	SchoolID    string `json:"school_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (s Session) Authenticated() bool { return s.AccessToken != "" }

func (s Session) HasSchool() bool { return s.SchoolID != "" }

// ExpiresAt reads the "exp" claim of the access token without verifying it.
// The signature is the backend's business; a zero time means unknown.
func (s Session) ExpiresAt() time.Time {
	if s.AccessToken == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Subject reads the "sub" claim of the access token, if any.
func (s Session) Subject() string {
	if s.AccessToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// Expired reports whether the token is known to be expired at now.
func (s Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}

// Store persists a Session between runs.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// Manager owns the current Session. It is injected into the HTTP layer
// and the commands instead of being looked up globally.
type Manager struct {
	mu    sync.RWMutex
	store Store
	curr  Session
}

// NewManager loads the stored Session, if any.
func NewManager(store Store) (*Manager, error) {
	sess, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	return &Manager{store: store, curr: sess}, nil
}

func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.curr
}

func (m *Manager) Token() string { return m.Current().AccessToken }

func (m *Manager) SchoolID() string { return m.Current().SchoolID }

// SignIn replaces the current Session and persists it.
func (m *Manager) SignIn(sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(sess); err != nil {
		return errors.Wrap(err, "saving session")
	}
	m.curr = sess
	return nil
}

// SelectSchool switches the school being managed, keeping the token.
func (m *Manager) SelectSchool(schoolID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.curr
	sess.SchoolID = schoolID
	if err := m.store.Save(sess); err != nil {
		return errors.Wrap(err, "saving session")
	}
	m.curr = sess
	return nil
}

// SignOut forgets the token, the school id and the user id.
// The in-memory Session is cleared even if the store fails.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.curr = Session{}
	return errors.Wrap(m.store.Clear(), "clearing session")
}
