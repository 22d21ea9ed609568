package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/blogd/pkg/model"

	_ "modernc.org/sqlite"
)

// PoolConfig bounds the connection pool. Requests that cannot acquire a
// connection within AcquireWait fail with ErrUnavailable instead of
// blocking indefinitely.
type PoolConfig struct {
	MaxConns    int
	AcquireWait time.Duration
}

// DefaultPoolConfig returns sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConns: 10, AcquireWait: 2 * time.Second}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	logger      *slog.Logger
	acquireWait time.Duration
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, pool PoolConfig, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.AcquireWait <= 0 {
		pool.AcquireWait = DefaultPoolConfig().AcquireWait
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:          db,
		logger:      logger.With("component", "store"),
		acquireWait: pool.AcquireWait,
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// withWait bounds the time a query may spend waiting on the pool.
func (s *SQLiteStore) withWait(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.acquireWait)
}

// classify maps driver errors to the store sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// --- User operations ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	s.logger.Debug("sql", "op", "insert", "table", "users", "username", u.Username)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, string(u.Role),
		u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return classify(err)
	}
	u.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	s.logger.Debug("sql", "op", "select", "table", "users", "id", id)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.logger.Debug("sql", "op", "select", "table", "users", "username", username)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var role, createdAt string

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	u.Role = model.UserRole(role)
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &u, nil
}

// --- Post operations ---

func (s *SQLiteStore) CreatePost(ctx context.Context, p *model.Post) error {
	s.logger.Debug("sql", "op", "insert", "table", "posts", "author_id", p.AuthorID)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (title, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.Content, p.AuthorID,
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return classify(err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	s.logger.Debug("sql", "op", "select", "table", "posts", "id", id)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	var p model.Post
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, author_id, created_at, updated_at
		 FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context) ([]*model.Post, error) {
	s.logger.Debug("sql", "op", "list", "table", "posts")
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.content, p.author_id, u.username, p.created_at, p.updated_at
		 FROM posts p
		 LEFT JOIN users u ON p.author_id = u.id
		 ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (s *SQLiteStore) SearchPosts(ctx context.Context, term string) ([]*model.Post, error) {
	s.logger.Debug("sql", "op", "search", "table", "posts")
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	// The term is bound as a LIKE parameter; it is data, never query text.
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.content, p.author_id, u.username, p.created_at, p.updated_at
		 FROM posts p
		 LEFT JOIN users u ON p.author_id = u.id
		 WHERE p.title LIKE ? OR p.content LIKE ?
		 ORDER BY p.created_at DESC`,
		pattern, pattern)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*model.Post, error) {
	posts := []*model.Post{}
	for rows.Next() {
		var p model.Post
		var username sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &username, &createdAt, &updatedAt); err != nil {
			return nil, classify(err)
		}
		p.Username = username.String
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		posts = append(posts, &p)
	}
	return posts, classify(rows.Err())
}

func (s *SQLiteStore) DeletePost(ctx context.Context, id int64) error {
	s.logger.Debug("sql", "op", "delete", "table", "posts", "id", id)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Session persistence ---

func (s *SQLiteStore) PutSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "token", model.TokenPrefix(sess.Token))
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (token, user_id, username, role, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.UserID, sess.Username, string(sess.Role),
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	return classify(err)
}

func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions", "token", model.TokenPrefix(token))
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	var sess model.Session
	var role string
	var createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, username, role, created_at, expires_at
		 FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.UserID, &sess.Username, &role, &createdAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	sess.Role = model.UserRole(role)
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	s.logger.Debug("sql", "op", "delete", "table", "sessions", "token", model.TokenPrefix(token))
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	// Idempotent: deleting an absent token is not an error.
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return classify(err)
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "cleanup", "table", "sessions")
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, classify(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- Security events ---

func (s *SQLiteStore) AppendSecurityEvent(ctx context.Context, ev *model.SecurityEvent) error {
	s.logger.Debug("sql", "op", "insert", "table", "security_events", "action", ev.Action)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var userID any
	if ev.UserID != 0 {
		userID = ev.UserID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO security_events (action, user_id, ip, user_agent, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Action, userID, ev.IP, ev.UserAgent, ev.Path,
		ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return classify(err)
	}
	ev.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListSecurityEvents(ctx context.Context, limit int) ([]*model.SecurityEvent, error) {
	s.logger.Debug("sql", "op", "list", "table", "security_events", "limit", limit)
	ctx, cancel := s.withWait(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, user_id, ip, user_agent, path, created_at
		 FROM security_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	events := []*model.SecurityEvent{}
	for rows.Next() {
		var ev model.SecurityEvent
		var userID sql.NullInt64
		var createdAt string

		if err := rows.Scan(&ev.ID, &ev.Action, &userID, &ev.IP, &ev.UserAgent, &ev.Path, &createdAt); err != nil {
			return nil, classify(err)
		}
		ev.UserID = userID.Int64
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, &ev)
	}
	return events, classify(rows.Err())
}
