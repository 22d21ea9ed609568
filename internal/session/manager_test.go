package session

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/pkg/model"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", store.DefaultPoolConfig(), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewManager(NewSQLStore(st))
}

func testUser() *model.User {
	return &model.User{ID: 1, Username: "alice", Email: "alice@x.com", Role: model.RoleUser}
}

func TestManager_CreateAndValidate(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(sess.Token, "sess_") {
		t.Errorf("token = %q, want sess_ prefix", sess.Token)
	}
	// 32 random bytes hex-encoded.
	if len(sess.Token) != len("sess_")+64 {
		t.Errorf("token length = %d, want %d", len(sess.Token), len("sess_")+64)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != Duration {
		t.Errorf("ttl = %v, want %v", got, Duration)
	}

	got, err := m.Validate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got == nil {
		t.Fatal("valid session not found")
	}
	if got.UserID != 1 || got.Username != "alice" || got.Role != model.RoleUser {
		t.Errorf("session = %+v", got)
	}
}

func TestManager_ValidateUnknownToken(t *testing.T) {
	m := testManager(t)

	got, err := m.Validate(context.Background(), "sess_doesnotexist")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}

	// Empty token short-circuits.
	got, err = m.Validate(context.Background(), "")
	if err != nil || got != nil {
		t.Errorf("empty token: got %+v, %v", got, err)
	}
}

func TestManager_ExpiredSessionReaped(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Backdate the record past its TTL.
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	if err := m.store.Put(ctx, sess); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	got, err := m.Validate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != nil {
		t.Fatal("expired session still validates")
	}

	// The expired record was reaped, not just hidden.
	raw, err := m.store.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw != nil {
		t.Error("expired record still present in store")
	}
}

func TestManager_DestroyIdempotent(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Destroy(ctx, sess.Token); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := m.Destroy(ctx, sess.Token); err != nil {
		t.Fatalf("second destroy: %v", err)
	}

	got, _ := m.Validate(ctx, sess.Token)
	if got != nil {
		t.Error("destroyed session still validates")
	}
}

// Generating many tokens yields all-distinct values; a collision or a
// shared suffix would indicate a broken random source.
func TestGenerateToken_Distinct(t *testing.T) {
	const n = 1000
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		tok, err := generateToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[tok] = true
	}
}

func TestFromRequest(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/user", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})

	got, err := m.FromRequest(r)
	if err != nil {
		t.Fatalf("from request: %v", err)
	}
	if got == nil || got.UserID != 1 {
		t.Errorf("session = %+v, want user 1", got)
	}

	// No cookie, no session, and no error.
	bare := httptest.NewRequest("GET", "/api/user", nil)
	got, err = m.FromRequest(bare)
	if err != nil || got != nil {
		t.Errorf("bare request: got %+v, %v", got, err)
	}
}

func TestCookieAttributes(t *testing.T) {
	sess := &model.Session{Token: "sess_abc", ExpiresAt: time.Now().Add(Duration)}
	w := httptest.NewRecorder()
	SetCookie(w, sess, false)

	res := w.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName {
		t.Errorf("name = %q", c.Name)
	}
	if !c.HttpOnly {
		t.Error("cookie is not HttpOnly")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Error("cookie is not SameSite=Strict")
	}

	w = httptest.NewRecorder()
	ClearCookie(w)
	c = w.Result().Cookies()[0]
	if c.MaxAge != -1 || c.Value != "" {
		t.Errorf("clear cookie = %+v", c)
	}
}
