package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

const preTicketPrefix = "pre."

// preTicketTTL bounds how long a pre-session ticket (issued to a caller
// with no session yet, e.g. at registration) stays in memory.
const preTicketTTL = time.Hour

// CsrfGuard issues and validates per-session anti-forgery secrets.
// Secrets live in memory keyed by session token; a secret is valid only
// while its session is, since verification always runs after session
// authentication and Drop is called on session destruction.
type CsrfGuard struct {
	mu      sync.Mutex
	secrets map[string]string    // session token -> secret
	pre     map[string]time.Time // pre-session ticket -> expiry
}

// NewCsrfGuard creates an empty guard.
func NewCsrfGuard() *CsrfGuard {
	return &CsrfGuard{
		secrets: make(map[string]string),
		pre:     make(map[string]time.Time),
	}
}

// Issue returns the anti-forgery secret bound to the session, minting one
// on first use. Re-issuing for the same session returns the same value.
func (g *CsrfGuard) Issue(sessionToken string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if secret, ok := g.secrets[sessionToken]; ok {
		return secret, nil
	}
	secret, err := randomValue()
	if err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	g.secrets[sessionToken] = secret
	return secret, nil
}

// Verify reports whether supplied matches the secret bound to the
// session. Absent or mismatched values fail closed. The comparison is
// constant time.
func (g *CsrfGuard) Verify(sessionToken, supplied string) bool {
	if supplied == "" {
		return false
	}

	g.mu.Lock()
	secret, ok := g.secrets[sessionToken]
	g.mu.Unlock()

	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(supplied)) == 1
}

// Drop discards the secret bound to a session. Called when the session
// is destroyed so the ticket cannot outlive it.
func (g *CsrfGuard) Drop(sessionToken string) {
	g.mu.Lock()
	delete(g.secrets, sessionToken)
	g.mu.Unlock()
}

// IssuePreSession mints a ticket for a caller that has no session yet
// (the register flow). Pre-session tickets satisfy the register response
// shape only; Verify never accepts them for a session-bound mutation.
func (g *CsrfGuard) IssuePreSession() (string, error) {
	value, err := randomValue()
	if err != nil {
		return "", fmt.Errorf("generate pre-session ticket: %w", err)
	}
	ticket := preTicketPrefix + value

	g.mu.Lock()
	g.reapPreLocked()
	g.pre[ticket] = time.Now().Add(preTicketTTL)
	g.mu.Unlock()

	return ticket, nil
}

// reapPreLocked drops expired pre-session tickets. Caller holds mu.
func (g *CsrfGuard) reapPreLocked() {
	now := time.Now()
	for t, exp := range g.pre {
		if now.After(exp) {
			delete(g.pre, t)
		}
	}
}

func randomValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
