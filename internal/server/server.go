// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it decides which URL patterns map to
// which handler, which middleware runs where, and how the server starts and
// stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB (users, and blogs by default) or mongostore.Store (blogs)
//	  storage.Local (images)
//	  → BlogService, AuthService
//	  → BlogHandler, AuthHandler, APIHandler
//
// This is the "composition root" pattern: every dependency is assembled in
// one place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/config"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/middleware"
	"github.com/sakif/blog/internal/repository"
	"github.com/sakif/blog/internal/repository/mongostore"
	sqliteRepo "github.com/sakif/blog/internal/repository/sqlite"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/internal/storage"
	"github.com/sakif/blog/internal/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connections. Close releases them; Start
// calls it on the way out.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	mongo  *mongostore.Store // nil unless store.driver = "mongo"
}

// New opens the stores and builds the router. The caller must call Close
// (or Start, which closes on exit).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.RequireSecret(); err != nil {
		return nil, err
	}

	db, err := OpenUserDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	var blogs repository.BlogRepository = db
	if cfg.Store.Driver == config.DriverMongo {
		s.mongo, err = mongostore.New(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("opening mongo blog store: %w", err)
		}
		blogs = s.mongo
	}

	if err := s.setupRoutes(blogs); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// OpenUserDB opens the SQLite database, creating its directory first. The
// CLI uses it directly for `user add`.
func OpenUserDB(cfg *config.Config) (*sqliteRepo.DB, error) {
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /login, /register          → public forms
//	POST /login, /register, /logout → public actions
//	GET  /auth/github/*             → GitHub OAuth (only when configured)
//	GET  /uploads/*                 → stored images
//	/api/*                          → JSON, 401 without a session
//	everything else                 → HTML, 303 to /login without a session
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns an id to each request
//  2. RealIP: extracts the client IP from proxy headers
//  3. Logger: logs each request, including the request id
//  4. Recoverer: turns panics into 500s
func (s *Server) setupRoutes(blogs repository.BlogRepository) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	ttl, err := s.cfg.SessionDuration()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret, ttl)
	if err != nil {
		return err
	}
	images, err := storage.NewLocal(s.cfg.UploadDir)
	if err != nil {
		return err
	}
	views, err := handler.NewRenderer(web.Templates, s.logger)
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHub.ClientID, s.cfg.GitHub.ClientSecret, s.cfg.GitHubCallbackURL())
	}

	blogService := service.NewBlogService(blogs, images, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	blogHandler := handler.NewBlogHandler(blogService, views, s.cfg.MaxUploadBytes, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, tokens, views, s.cfg.SecureCookies, s.logger)
	apiHandler := handler.NewAPIHandler(blogService, s.logger)

	// === Public routes ===
	s.router.Get("/login", authHandler.HandleLoginForm)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/register", authHandler.HandleRegisterForm)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/logout", authHandler.HandleLogout)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub login disabled: github.client_id not set")
	}

	// Images are public so they can be linked from any page. Dot entries
	// (the .tmp staging dir) are never served.
	fileServer := http.StripPrefix(storage.URLPrefix, http.FileServer(http.Dir(images.Root())))
	s.router.Get(storage.URLPrefix+"*", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/.") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAPISession(tokens, s.db, s.logger))
		r.Get("/blogs", handler.Authed(apiHandler.HandleListBlogs))
		r.Get("/blogs/{blogId}", handler.Authed(apiHandler.HandleGetBlog))
		r.Get("/me", handler.Authed(apiHandler.HandleMe))
	})

	// === Blog pages (session-gated) ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(tokens, s.db, s.logger))
		r.Get("/", handler.Authed(blogHandler.HandleList))
		r.Get("/new", handler.Authed(blogHandler.HandleNewForm))
		r.Post("/new", handler.Authed(blogHandler.HandleCreate))
		r.Get("/{blogId}", handler.Authed(blogHandler.HandleView))
		r.Post("/{blogId}/newComment", handler.Authed(blogHandler.HandleAddComment))
		r.Post("/{blogId}/comment/{commentId}/like", handler.Authed(blogHandler.HandleToggleLike))
		r.Post("/{blogId}/comment/{commentId}/reply", handler.Authed(blogHandler.HandleReply))
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connections.
func (s *Server) Close() error {
	var errs []error
	if s.mongo != nil {
		errs = append(errs, s.mongo.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the databases (flushes the SQLite WAL, disconnects Mongo)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing stores", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("store", s.cfg.Store.Driver),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
