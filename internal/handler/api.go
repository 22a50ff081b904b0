package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/service"
)

// APIHandler is the read-only JSON view of the blog, behind
// auth.RequireAPISession.
//
//	GET /api/blogs          → every blog, newest first
//	GET /api/blogs/{blogId} → one blog with its comment tree
//	GET /api/me             → the session user
type APIHandler struct {
	blogs  *service.BlogService
	logger *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(blogs *service.BlogService, logger *slog.Logger) *APIHandler {
	return &APIHandler{blogs: blogs, logger: logger}
}

// HandleListBlogs returns every blog.
//
// HTTP: GET /api/blogs
func (h *APIHandler) HandleListBlogs(w http.ResponseWriter, r *http.Request, _ *model.User) {
	blogs, err := h.blogs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

// HandleGetBlog returns one blog.
//
// HTTP: GET /api/blogs/{blogId}
func (h *APIHandler) HandleGetBlog(w http.ResponseWriter, r *http.Request, _ *model.User) {
	blog, err := h.blogs.Get(r.Context(), chi.URLParam(r, "blogId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

// HandleMe returns the session user's profile. The password hash is
// excluded by the model's json tags.
//
// HTTP: GET /api/me
func (h *APIHandler) HandleMe(w http.ResponseWriter, _ *http.Request, user *model.User) {
	writeJSON(w, http.StatusOK, user)
}
