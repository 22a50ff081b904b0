// Package handler contains the HTTP request handlers for the blog.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming HTTP request (path params, form fields, uploads)
//  2. Call the service layer
//  3. Write the HTTP response (rendered page, redirect or JSON)
//
// Handlers contain no business logic; they are the glue between HTTP and
// the services.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/sakif/blog/internal/model"
)

// Page names. Each one is parsed together with base.html.
const (
	pageBlogs    = "blogs"
	pageBlog     = "blog"
	pageNewBlog  = "new_blog"
	pageLogin    = "login"
	pageRegister = "register"
	pageError    = "error"
)

var pages = []string{pageBlogs, pageBlog, pageNewBlog, pageLogin, pageRegister, pageError}

// pageData is the single data shape every template receives. Fields a page
// doesn't use stay zero.
type pageData struct {
	Title         string
	User          *model.User
	Error         string
	Heading       string
	Form          url.Values
	Blogs         []model.Blog
	Blog          *model.Blog
	Recent        []model.Blog
	GitHubEnabled bool
}

var templateFuncs = template.FuncMap{
	"liked": func(c model.Comment, email string) bool {
		return slices.Contains(c.Likes, email)
	},
}

// Renderer holds parsed templates so we don't re-parse them on every request.
//
// TEMPLATE COMPOSITION:
// base.html defines the page shell with a {{template "content" .}}
// placeholder and every page file fills it with {{define "content"}}. Each
// page is parsed into its own template set, otherwise the last "content"
// definition would win for all of them.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page from fsys (web.Templates in production).
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page into a buffer first, so a template error becomes a
// clean 500 instead of a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := r.pages[page]
	if !ok {
		r.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		r.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderError renders the error page with the status that err maps to.
func (r *Renderer) RenderError(w http.ResponseWriter, user *model.User, err error) {
	status, _ := statusFor(err)
	heading := http.StatusText(status)
	if status == http.StatusNotFound {
		heading = "Blog not found"
	}
	r.Render(w, status, pageError, pageData{
		Title:   heading,
		User:    user,
		Heading: heading,
		Error:   publicMessage(err, status),
	})
}
