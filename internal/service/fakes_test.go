package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// The service layer starts no goroutines of its own; goleak keeps it that way.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// FAKE BLOG REPOSITORY
// =========================================================================
//
// fakeBlogRepo keeps documents in memory and applies mutations with the
// same model methods the SQLite store uses. A mutex stands in for the
// store's per-document atomicity.

type fakeBlogRepo struct {
	mu    sync.Mutex
	blogs []*model.Blog // insertion order

	// set to a non-nil error to simulate a store failure
	createErr error
	listErr   error
	getErr    error
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{}
}

func (f *fakeBlogRepo) find(id string) *model.Blog {
	for _, b := range f.blogs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (f *fakeBlogRepo) Create(_ context.Context, blog *model.Blog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.find(blog.ID) != nil {
		return apperror.Conflict("blog", blog.ID)
	}
	stored := *blog
	f.blogs = append(f.blogs, &stored)
	return nil
}

func (f *fakeBlogRepo) GetByID(_ context.Context, id string) (*model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	b := f.find(id)
	if b == nil {
		return nil, apperror.NotFound("blog", id)
	}
	return deepCopy(b), nil
}

func (f *fakeBlogRepo) List(_ context.Context) ([]model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Blog, 0, len(f.blogs))
	for _, b := range f.blogs {
		out = append(out, *deepCopy(b))
	}
	slices.SortStableFunc(out, func(a, b model.Blog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeBlogRepo) AppendComment(_ context.Context, blogID string, c model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.find(blogID)
	if b == nil {
		return apperror.NotFound("blog", blogID)
	}
	b.AppendComment(c)
	return nil
}

func (f *fakeBlogRepo) ToggleLike(_ context.Context, blogID, commentID, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.find(blogID)
	if b == nil {
		return false, apperror.NotFound("blog", blogID)
	}
	c, ok := b.FindComment(commentID)
	if !ok {
		return false, apperror.NotFound("comment", commentID)
	}
	return c.ToggleLike(email), nil
}

func (f *fakeBlogRepo) AppendReply(_ context.Context, blogID, commentID string, r model.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.find(blogID)
	if b == nil {
		return apperror.NotFound("blog", blogID)
	}
	c, ok := b.FindComment(commentID)
	if !ok {
		return apperror.NotFound("comment", commentID)
	}
	c.AppendReply(r)
	return nil
}

func (f *fakeBlogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blogs)
}

func deepCopy(b *model.Blog) *model.Blog {
	out := *b
	out.Comments = make([]model.Comment, len(b.Comments))
	for i, c := range b.Comments {
		c.Likes = slices.Clone(c.Likes)
		c.Replies = slices.Clone(c.Replies)
		out.Comments[i] = c
	}
	return &out
}

// =========================================================================
// FAKE IMAGE STORE
// =========================================================================

type fakeImages struct {
	mu      sync.Mutex
	saved   map[string]string // relPath → content
	saveErr error
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: make(map[string]string)}
}

func (f *fakeImages) Save(_ context.Context, ownerID, filename string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rel := fmt.Sprintf("/uploads/%s_blog_%d_%s", ownerID, len(f.saved), filename)
	f.saved[rel] = string(data)
	return rel, nil
}

func (f *fakeImages) Delete(_ context.Context, relPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, relPath)
	return nil
}

// =========================================================================
// FAKE USER REPOSITORY
// =========================================================================

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User // keyed by internal ID
	nextID  int
	findErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) byEmail(email string) *model.User {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byEmail(user.Email) != nil {
		return apperror.Conflict("user", user.Email)
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	var existing *model.User
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			existing = u
		}
	}
	if existing == nil {
		existing = f.byEmail(user.Email)
	}
	if existing != nil {
		user.ID = existing.ID
		user.PasswordHash = existing.PasswordHash
		stored := *user
		f.users[user.ID] = &stored
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	return f.CreateUser(ctx, user)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u := f.byEmail(email)
	if u == nil {
		return nil, apperror.NotFound("user", email)
	}
	out := *u
	return &out, nil
}
