// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the document store
//
// Services accept primitives and the acting user as explicit arguments,
// never *http.Request, and return apperror kinds instead of status codes.
// The acting user always comes in as a parameter: there is no ambient
// "current user" anywhere in this package.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
	"github.com/sakif/blog/internal/storage"
)

// ImageUpload is the uploaded picture for a new blog.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// CreateBlogInput carries the creation form.
type CreateBlogInput struct {
	Title       string
	Description string
	Content     string
	Image       *ImageUpload
}

// BlogService lists, creates and mutates blogs.
type BlogService struct {
	repo   repository.BlogRepository
	images storage.ImageStore
	logger *slog.Logger

	// Overridable in tests.
	now   func() time.Time
	newID func() string
}

// NewBlogService wires the service to a store and an image store.
func NewBlogService(repo repository.BlogRepository, images storage.ImageStore, logger *slog.Logger) *BlogService {
	return &BlogService{
		repo:   repo,
		images: images,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// List returns every blog, newest first. Store failures are returned to
// the caller; nothing is swallowed.
func (s *BlogService) List(ctx context.Context) ([]model.Blog, error) {
	blogs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list blogs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	return blogs, nil
}

// Get returns one blog. A missing blog is apperror.ErrNotFound; a store
// failure is returned as-is, the same policy as List.
func (s *BlogService) Get(ctx context.Context, id string) (*model.Blog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "blog ID is required")
	}
	blog, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to get blog", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("getting blog %s: %w", id, err)
	}
	return blog, nil
}

// Create validates the form, stores the image, then stores the document.
//
// ORDERING:
// The image is written first. If that fails, nothing is persisted and the
// caller gets apperror.ErrUpload. If the document write then fails, the
// image is removed again so no orphan file is left behind.
//
// All four fields are required; no other validation is performed.
func (s *BlogService) Create(ctx context.Context, user *model.User, in CreateBlogInput) (*model.Blog, error) {
	if user == nil {
		return nil, apperror.Unauthorized("login required")
	}
	if in.Title == "" || in.Description == "" || in.Content == "" || in.Image == nil || in.Image.Filename == "" {
		return nil, apperror.ValidationFailed("", "All fields are required")
	}

	picture, err := s.images.Save(ctx, user.ID, in.Image.Filename, in.Image.Body)
	if err != nil {
		s.logger.Error("failed to store blog image",
			slog.String("user", user.ID),
			slog.String("filename", in.Image.Filename),
			slog.String("error", err.Error()),
		)
		return nil, apperror.UploadFailed(err)
	}

	now := s.now()
	blog := &model.Blog{
		ID:            s.newID(),
		Title:         in.Title,
		Description:   in.Description,
		Content:       in.Content,
		Picture:       picture,
		Author:        user.Email,
		Date:          model.FormatLongDate(now),
		FormattedDate: model.FormatDisplayDate(now),
		Comments:      []model.Comment{},
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, blog); err != nil {
		if delErr := s.images.Delete(ctx, picture); delErr != nil {
			s.logger.Warn("failed to remove image after blog write failed",
				slog.String("picture", picture),
				slog.String("error", delErr.Error()),
			)
		}
		s.logger.Error("failed to create blog", slog.String("title", in.Title), slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating blog: %w", err)
	}

	s.logger.Info("blog created",
		slog.String("id", blog.ID),
		slog.String("author", blog.Author),
	)
	return blog, nil
}

// AddComment appends a comment by user. The text is stored as given, empty
// included.
func (s *BlogService) AddComment(ctx context.Context, user *model.User, blogID, text string) (*model.Comment, error) {
	if user == nil {
		return nil, apperror.Unauthorized("login required")
	}
	comment := model.Comment{
		ID:            s.newID(),
		Content:       text,
		Author:        user.DisplayName(),
		AuthorPicture: user.Picture,
		Replies:       []model.Reply{},
		Likes:         []string{},
	}
	if err := s.repo.AppendComment(ctx, blogID, comment); err != nil {
		s.logMutationError("comment", blogID, "", err)
		return nil, fmt.Errorf("adding comment to blog %s: %w", blogID, err)
	}
	s.logger.Info("comment added", slog.String("blog", blogID), slog.String("comment", comment.ID))
	return &comment, nil
}

// ToggleLike likes the comment for user, or unlikes it if already liked.
// It reports whether the comment is liked by user afterwards.
func (s *BlogService) ToggleLike(ctx context.Context, user *model.User, blogID, commentID string) (bool, error) {
	if user == nil {
		return false, apperror.Unauthorized("login required")
	}
	liked, err := s.repo.ToggleLike(ctx, blogID, commentID, user.Email)
	if err != nil {
		s.logMutationError("like", blogID, commentID, err)
		return false, fmt.Errorf("toggling like on comment %s: %w", commentID, err)
	}
	s.logger.Info("like toggled",
		slog.String("blog", blogID),
		slog.String("comment", commentID),
		slog.Bool("liked", liked),
	)
	return liked, nil
}

// AddReply appends a reply by user to one comment.
func (s *BlogService) AddReply(ctx context.Context, user *model.User, blogID, commentID, text string) error {
	if user == nil {
		return apperror.Unauthorized("login required")
	}
	reply := model.Reply{
		Content:       text,
		Author:        user.Email,
		AuthorPicture: user.Picture,
	}
	if err := s.repo.AppendReply(ctx, blogID, commentID, reply); err != nil {
		s.logMutationError("reply", blogID, commentID, err)
		return fmt.Errorf("adding reply to comment %s: %w", commentID, err)
	}
	s.logger.Info("reply added", slog.String("blog", blogID), slog.String("comment", commentID))
	return nil
}

// NotFound on a mutation is a normal outcome (stale page, bad link) and
// logs at Warn; anything else is a store failure.
func (s *BlogService) logMutationError(op, blogID, commentID string, err error) {
	level := slog.LevelError
	if errors.Is(err, apperror.ErrNotFound) {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, op+" failed",
		slog.String("blog", blogID),
		slog.String("comment", commentID),
		slog.String("error", err.Error()),
	)
}
