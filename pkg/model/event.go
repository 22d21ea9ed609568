package model

import "time"

// Security event action tags. One is recorded for every guard rejection
// and every sensitive success.
const (
	ActionUserRegistered        = "USER_REGISTERED"
	ActionRegistrationDuplicate = "REGISTRATION_DUPLICATE"
	ActionRegistrationError     = "REGISTRATION_ERROR"
	ActionLoginSuccess          = "LOGIN_SUCCESS"
	ActionLoginFailedNoUser     = "LOGIN_FAILED_USER_NOT_FOUND"
	ActionLoginFailedPassword   = "LOGIN_FAILED_INVALID_PASSWORD"
	ActionLoginError            = "LOGIN_ERROR"
	ActionLogout                = "LOGOUT"
	ActionPostCreated           = "POST_CREATED"
	ActionPostCreationError     = "POST_CREATION_ERROR"
	ActionPostDeleted           = "POST_DELETED"
	ActionPostDeletionError     = "POST_DELETION_ERROR"
	ActionUnauthorizedAccess    = "UNAUTHORIZED_ACCESS"
	ActionUnauthorizedDelete    = "UNAUTHORIZED_POST_DELETE"
	ActionCSRFInvalid           = "CSRF_TOKEN_INVALID"
	ActionValidationFailed      = "VALIDATION_FAILED"
	ActionServerError           = "SERVER_ERROR"
)

// SecurityEvent is an append-only audit record. Events are never mutated
// or deleted once written.
type SecurityEvent struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	UserID    int64     `json:"user_id,omitempty"` // 0 when no principal is known
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
