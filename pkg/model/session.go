package model

import "time"

// Session represents an authenticated user session. The token is the
// server-held key; role and username are copied from the user record at
// creation and are never accepted from client input.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsAdmin reports whether the session has admin role.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// TokenPrefix returns a short identifying prefix of the session token,
// safe to include in logs and audit records.
func (s *Session) TokenPrefix() string {
	return TokenPrefix(s.Token)
}

// TokenPrefix truncates a token to its first 8 characters.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
