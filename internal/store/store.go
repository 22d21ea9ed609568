package store

import (
	"context"
	"errors"

	"github.com/me/blogd/pkg/model"
)

// Sentinel errors returned by Store implementations. Callers map these to
// the API error taxonomy; the underlying driver error never leaves this
// package boundary in client-visible form.
var (
	// ErrDuplicate indicates a UNIQUE constraint violation (username/email).
	ErrDuplicate = errors.New("duplicate unique field")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates the bounded pool wait elapsed before the
	// query could run. Retriable.
	ErrUnavailable = errors.New("storage unavailable")
)

// Store defines the persistence layer for blogd entities. Every query is
// a fixed template with bound parameters; untrusted values are never
// concatenated into query text.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Post operations
	CreatePost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
	SearchPosts(ctx context.Context, term string) ([]*model.Post, error)
	DeletePost(ctx context.Context, id int64) error

	// Session persistence (used by the SQLite session backend)
	PutSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Security events (append-only; there is intentionally no update or
	// delete operation for them)
	AppendSecurityEvent(ctx context.Context, ev *model.SecurityEvent) error
	ListSecurityEvents(ctx context.Context, limit int) ([]*model.SecurityEvent, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
