package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/blogd/internal/validate"
	"github.com/me/blogd/pkg/model"
)

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.logger.Error("list posts failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondStoreError(w, err, "Failed to load posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	in, apiErr := validate.PostInput(req.Title, req.Content)
	if apiErr != nil {
		s.audit.Record(model.ActionValidationFailed, sess.UserID, r)
		respondAPIError(w, apiErr)
		return
	}

	post := &model.Post{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: sess.UserID,
	}
	if err := s.store.CreatePost(r.Context(), post); err != nil {
		s.logger.Error("create post failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionPostCreationError, sess.UserID, r)
		respondStoreError(w, err, "Failed to create post")
		return
	}

	csrfToken, err := s.csrf.Issue(sess.Token)
	if err != nil {
		s.logger.Error("csrf issue failed", "error", err)
	}

	s.audit.Record(model.ActionPostCreated, sess.UserID, r)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"postId":    post.ID,
		"csrfToken": csrfToken,
	})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.logger.Error("get post failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionPostDeletionError, sess.UserID, r)
		respondStoreError(w, err, "Failed to delete post")
		return
	}
	if post == nil {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}

	// Only the author or an admin may remove a post.
	if post.AuthorID != sess.UserID && !sess.IsAdmin() {
		s.audit.Record(model.ActionUnauthorizedDelete, sess.UserID, r)
		respondError(w, http.StatusForbidden, "Not authorized to delete this post")
		return
	}

	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.logger.Error("delete post failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		s.audit.Record(model.ActionPostDeletionError, sess.UserID, r)
		respondStoreError(w, err, "Failed to delete post")
		return
	}

	s.audit.Record(model.ActionPostDeleted, sess.UserID, r)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term, ok := validate.SearchTerm(r.URL.Query().Get("q"))
	if !ok {
		respondJSON(w, http.StatusOK, []*model.Post{})
		return
	}

	posts, err := s.store.SearchPosts(r.Context(), term)
	if err != nil {
		s.logger.Error("search posts failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		respondStoreError(w, err, "Search failed")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (s *Server) handleReflectXSS(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	if input == "" {
		respondJSON(w, http.StatusOK, map[string]any{"message": "No input provided."})
		return
	}

	escaped, apiErr := validate.ReflectInput(input)
	if apiErr != nil {
		s.audit.Record(model.ActionValidationFailed, 0, r)
		respondAPIError(w, apiErr)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Search results for: " + escaped,
		"userInput": escaped,
	})
}
