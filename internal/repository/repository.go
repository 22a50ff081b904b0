// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in the sqlite and mongo subpackages.
package repository

import (
	"context"

	"github.com/sakif/blog/internal/model"
)

// BlogRepository is the document store adapter for blogs.
//
// Every mutation targets exactly one document and must be atomic with
// respect to concurrent mutations of the same document: two users liking
// the same comment at the same time must both be recorded.
//
// Missing blogs or comments are reported as apperror.ErrNotFound.
type BlogRepository interface {
	Create(ctx context.Context, blog *model.Blog) error
	GetByID(ctx context.Context, id string) (*model.Blog, error)
	// List returns every blog, newest first.
	List(ctx context.Context) ([]model.Blog, error)

	AppendComment(ctx context.Context, blogID string, comment model.Comment) error
	// ToggleLike returns true when email likes the comment after the call.
	ToggleLike(ctx context.Context, blogID, commentID, email string) (bool, error)
	AppendReply(ctx context.Context, blogID, commentID string, reply model.Reply) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	// Upsert inserts or refreshes a user keyed by GitHubID.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
