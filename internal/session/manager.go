package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/me/blogd/pkg/model"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "blogd_session"
	// Duration is the fixed session lifetime, measured from creation.
	Duration = 24 * time.Hour
)

// Manager handles session creation, validation, and destruction. A
// session record exists in the store exactly while a user has an active
// authenticated context.
type Manager struct {
	store Store
}

// NewManager creates a new session manager over the given backend.
func NewManager(st Store) *Manager {
	return &Manager{store: st}
}

// Create mints a session for the authenticated user and persists it.
// The token comes from a cryptographically secure random source (256
// bits) and is delivered to the client only via an HTTP-only cookie.
func (m *Manager) Create(ctx context.Context, user *model.User) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(Duration),
	}

	if err := m.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Validate looks up a session by exact token match.
// Expired records are treated as absent and reaped on the spot.
func (m *Manager) Validate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if sess.IsExpired() {
		_ = m.store.Delete(ctx, token)
		return nil, nil
	}
	return sess, nil
}

// Destroy removes the session record. Destroying an absent token is a
// no-op, not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	return m.store.Delete(ctx, token)
}

// Cleanup removes all expired sessions from the store.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// FromRequest extracts and validates the session carried by the request
// cookie. The token is never accepted from a request body or query
// parameter.
func (m *Manager) FromRequest(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie, no session
	}
	return m.Validate(r.Context(), cookie.Value)
}

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sess *model.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken generates a cryptographically secure random session token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + hex.EncodeToString(b), nil
}
