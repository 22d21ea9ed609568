package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/me/blogd/pkg/model"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "session"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// SessionFromContext extracts the authenticated session from context.
// Nil when the request did not pass the session guard.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(ctxKeySession).(*model.Session)
	return sess
}

// requestIDMiddleware generates a request_id and stores it in context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// recoverer confines a panicking handler to its own request: the client
// gets a generic 500 and the process keeps serving.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
				)
				s.audit.Record(model.ActionServerError, 0, r)
				respondError(w, http.StatusInternalServerError, "Something went wrong!")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireSession authenticates the request from the session cookie and
// threads the resulting Session explicitly through the context. No valid
// session means 401, recorded.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			s.logger.Error("session lookup failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
			respondStoreError(w, err, "Something went wrong!")
			return
		}
		if sess == nil {
			s.audit.Record(model.ActionUnauthorizedAccess, 0, r)
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCSRF validates the anti-forgery ticket for state-changing
// requests. Must run after requireSession. The value is read from the
// X-CSRF-Token header or the csrfToken body field, never from a cookie.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			respondError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}

		supplied := r.Header.Get("X-CSRF-Token")
		if supplied == "" {
			supplied = csrfFromBody(r)
		}

		if !s.csrf.Verify(sess.Token, supplied) {
			s.audit.Record(model.ActionCSRFInvalid, sess.UserID, r)
			respondError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// csrfFromBody peeks at a JSON body for a csrfToken (or _csrf) field,
// restoring the body for the handler.
func csrfFromBody(r *http.Request) string {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var fields struct {
		CsrfToken string `json:"csrfToken"`
		Csrf      string `json:"_csrf"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	if fields.CsrfToken != "" {
		return fields.CsrfToken
	}
	return fields.Csrf
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
