package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// the multipart reader spills to a temp file.
const multipartMemory = 8 << 20

// notFoundNotice is shown on the blog page after a mutation whose target
// no longer exists.
const notFoundNotice = "The post or comment you acted on could not be found."

// AuthedHandlerFunc is a handler that receives the session user explicitly.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, user *model.User)

// Authed adapts an AuthedHandlerFunc to http.HandlerFunc. It must sit
// behind auth.RequireSession, which is what puts the user in the context;
// a request that somehow arrives without one is sent to the login page.
func Authed(fn AuthedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
			return
		}
		fn(w, r, user)
	}
}

// BlogHandler serves the blog pages and the three comment mutations.
//
// ROUTES (all behind the session gate):
//
//	GET  /                                   → list
//	GET  /new                                → creation form
//	POST /new                                → create (multipart)
//	GET  /{blogId}                           → view
//	POST /{blogId}/newComment                → add comment
//	POST /{blogId}/comment/{commentId}/like  → toggle like
//	POST /{blogId}/comment/{commentId}/reply → add reply
type BlogHandler struct {
	blogs          *service.BlogService
	views          *Renderer
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewBlogHandler creates a BlogHandler. maxUploadBytes caps the whole
// creation request body.
func NewBlogHandler(blogs *service.BlogService, views *Renderer, maxUploadBytes int64, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		blogs:          blogs,
		views:          views,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HandleList renders every blog, newest first.
//
// HTTP: GET /
func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request, user *model.User) {
	blogs, err := h.blogs.List(r.Context())
	if err != nil {
		h.views.RenderError(w, user, err)
		return
	}
	h.views.Render(w, http.StatusOK, pageBlogs, pageData{
		Title: "All posts",
		User:  user,
		Blogs: blogs,
	})
}

// HandleNewForm renders the empty creation form.
//
// HTTP: GET /new
func (h *BlogHandler) HandleNewForm(w http.ResponseWriter, r *http.Request, user *model.User) {
	h.views.Render(w, http.StatusOK, pageNewBlog, pageData{Title: "New post", User: user})
}

// HandleCreate stores the uploaded image and the new blog.
//
// HTTP: POST /new (multipart/form-data: title, description, content, image)
//
// OUTCOMES:
//   - success          → 303 to /
//   - missing field    → 400, form re-rendered with "All fields are required"
//   - body too large   → 413, form re-rendered
//   - image write fail → 500 error page, nothing persisted
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request, user *model.User) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("blog upload too large", slog.String("user", user.ID), slog.Int64("limit", tooLarge.Limit))
			h.views.Render(w, http.StatusRequestEntityTooLarge, pageNewBlog, pageData{
				Title: "New post",
				User:  user,
				Error: "The image is too large",
			})
			return
		}
		// Not multipart at all: every field is missing, which the service
		// reports as a validation error below.
		h.logger.Debug("blog form is not multipart", slog.String("error", err.Error()))
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := service.CreateBlogInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Content:     r.FormValue("content"),
	}

	var file multipart.File
	if f, header, err := r.FormFile("image"); err == nil {
		file = f
		in.Image = &service.ImageUpload{Filename: header.Filename, Body: f}
	}
	if file != nil {
		defer file.Close()
	}

	if _, err := h.blogs.Create(r.Context(), user, in); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.views.Render(w, http.StatusBadRequest, pageNewBlog, pageData{
				Title: "New post",
				User:  user,
				Error: publicMessage(err, http.StatusBadRequest),
				Form:  r.PostForm,
			})
			return
		}
		h.views.RenderError(w, user, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleView renders one blog with its comment tree and the other posts.
//
// HTTP: GET /{blogId}
func (h *BlogHandler) HandleView(w http.ResponseWriter, r *http.Request, user *model.User) {
	blogID := chi.URLParam(r, "blogId")

	blog, err := h.blogs.Get(r.Context(), blogID)
	if err != nil {
		h.views.RenderError(w, user, err)
		return
	}
	all, err := h.blogs.List(r.Context())
	if err != nil {
		h.views.RenderError(w, user, err)
		return
	}

	recent := make([]model.Blog, 0, len(all))
	for _, b := range all {
		if b.ID != blog.ID {
			recent = append(recent, b)
		}
	}

	data := pageData{
		Title:  blog.Title,
		User:   user,
		Blog:   blog,
		Recent: recent,
	}
	if r.URL.Query().Get("error") == "not_found" {
		data.Error = notFoundNotice
	}
	h.views.Render(w, http.StatusOK, pageBlog, data)
}

// HandleAddComment appends a comment from the "newComment" field.
//
// HTTP: POST /{blogId}/newComment
func (h *BlogHandler) HandleAddComment(w http.ResponseWriter, r *http.Request, user *model.User) {
	blogID := chi.URLParam(r, "blogId")
	_, err := h.blogs.AddComment(r.Context(), user, blogID, r.PostFormValue("newComment"))
	h.redirectToBlog(w, r, user, blogID, err)
}

// HandleToggleLike likes or unlikes a comment for the session user.
//
// HTTP: POST /{blogId}/comment/{commentId}/like
func (h *BlogHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request, user *model.User) {
	blogID := chi.URLParam(r, "blogId")
	_, err := h.blogs.ToggleLike(r.Context(), user, blogID, chi.URLParam(r, "commentId"))
	h.redirectToBlog(w, r, user, blogID, err)
}

// HandleReply appends a reply from the "replyContent" field.
//
// HTTP: POST /{blogId}/comment/{commentId}/reply
func (h *BlogHandler) HandleReply(w http.ResponseWriter, r *http.Request, user *model.User) {
	blogID := chi.URLParam(r, "blogId")
	err := h.blogs.AddReply(r.Context(), user, blogID, chi.URLParam(r, "commentId"), r.PostFormValue("replyContent"))
	h.redirectToBlog(w, r, user, blogID, err)
}

// redirectToBlog finishes every mutation. Success and not-found both go
// back to the blog page, the latter with ?error=not_found so the page can
// say so. Anything else is a store failure and renders a 500.
func (h *BlogHandler) redirectToBlog(w http.ResponseWriter, r *http.Request, user *model.User, blogID string, err error) {
	target := "/" + url.PathEscape(blogID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		target += "?error=not_found"
	default:
		h.views.RenderError(w, user, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
