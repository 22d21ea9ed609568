package session

import (
	"context"

	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/pkg/model"
)

// Store is the keyed persistence backing the session manager. The server
// is the sole writer; no claim in a Session is ever accepted from client
// input.
type Store interface {
	Put(ctx context.Context, sess *model.Session) error
	Get(ctx context.Context, token string) (*model.Session, error)
	// Delete is idempotent: removing an absent token is a no-op.
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLStore adapts the main store's session table to the session.Store
// interface. This is the default backend.
type SQLStore struct {
	st store.Store
}

// NewSQLStore wraps the given store.
func NewSQLStore(st store.Store) *SQLStore {
	return &SQLStore{st: st}
}

func (s *SQLStore) Put(ctx context.Context, sess *model.Session) error {
	return s.st.PutSession(ctx, sess)
}

func (s *SQLStore) Get(ctx context.Context, token string) (*model.Session, error) {
	return s.st.GetSession(ctx, token)
}

func (s *SQLStore) Delete(ctx context.Context, token string) error {
	return s.st.DeleteSession(ctx, token)
}

func (s *SQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.st.DeleteExpiredSessions(ctx)
}
