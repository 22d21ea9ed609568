package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/me/blogd/internal/session"
	"github.com/me/blogd/internal/store"
	"github.com/me/blogd/internal/validate"
	"github.com/me/blogd/pkg/model"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	reg, apiErr := validate.RegistrationInput(req.Username, req.Email, req.Password)
	if apiErr != nil {
		s.audit.Record(model.ActionValidationFailed, 0, r)
		respondAPIError(w, apiErr)
		return
	}

	hash, err := s.hasher.Hash(r.Context(), reg.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionRegistrationError, 0, r)
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.audit.Record(model.ActionRegistrationDuplicate, 0, r)
			// This endpoint reports duplicates as 400, not 409.
			respondError(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		s.logger.Error("create user failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionRegistrationError, 0, r)
		respondStoreError(w, err, "Registration failed")
		return
	}

	// The caller has no session yet; hand out a pre-session ticket so
	// the response shape matches the login-bound flows.
	ticket, err := s.csrf.IssuePreSession()
	if err != nil {
		s.logger.Error("pre-session ticket failed", "error", err)
	}

	s.audit.Record(model.ActionUserRegistered, user.ID, r)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"userId":    user.ID,
		"csrfToken": ticket,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// Usernames are stored escaped; escape the lookup key the same way
	// so the comparison is literal on both sides.
	user, err := s.store.GetUserByUsername(r.Context(), validate.Escape(req.Username))
	if err != nil {
		s.logger.Error("user lookup failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionLoginError, 0, r)
		respondStoreError(w, err, "Login failed")
		return
	}
	if user == nil {
		s.audit.Record(model.ActionLoginFailedNoUser, 0, r)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ok, err := s.hasher.Verify(r.Context(), req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password verify failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionLoginError, user.ID, r)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if !ok {
		s.audit.Record(model.ActionLoginFailedPassword, user.ID, r)
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	sess, err := s.sessions.Create(r.Context(), user)
	if err != nil {
		s.logger.Error("session create failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionLoginError, user.ID, r)
		respondStoreError(w, err, "Login failed")
		return
	}

	csrfToken, err := s.csrf.Issue(sess.Token)
	if err != nil {
		s.logger.Error("csrf issue failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	session.SetCookie(w, sess, s.config.SecureCookies)
	s.audit.Record(model.ActionLoginSuccess, user.ID, r)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
		"csrfToken": csrfToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	s.audit.Record(model.ActionLogout, sess.UserID, r)

	if err := s.sessions.Destroy(r.Context(), sess.Token); err != nil {
		s.logger.Error("session destroy failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	// Dropping the ticket with the session keeps them bound 1:1.
	s.csrf.Drop(sess.Token)

	session.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       sess.UserID,
			"username": sess.Username,
			"role":     sess.Role,
		},
	})
}

func (s *Server) handleCsrfToken(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	csrfToken, err := s.csrf.Issue(sess.Token)
	if err != nil {
		s.logger.Error("csrf issue failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong!")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"csrfToken": csrfToken})
}
