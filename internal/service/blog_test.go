package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/storage"
)

func newTestBlogService(t *testing.T) (*BlogService, *fakeBlogRepo, *fakeImages) {
	t.Helper()
	repo := newFakeBlogRepo()
	images := newFakeImages()
	return NewBlogService(repo, images, testLogger()), repo, images
}

var alice = &model.User{ID: "u-alice", Email: "alice@example.com", Name: "Alice", Picture: "/avatars/alice.png"}
var bob = &model.User{ID: "u-bob", Email: "bob@example.com"}

func validInput() CreateBlogInput {
	return CreateBlogInput{
		Title:       "Hello",
		Description: "first post",
		Content:     "body text",
		Image:       &ImageUpload{Filename: "cat.png", Body: strings.NewReader("png-bytes")},
	}
}

func createBlog(t *testing.T, svc *BlogService) *model.Blog {
	t.Helper()
	blog, err := svc.Create(context.Background(), alice, validInput())
	require.NoError(t, err)
	return blog
}

// =========================================================================
// Create
// =========================================================================

func TestBlogService_Create(t *testing.T) {
	svc, repo, images := newTestBlogService(t)
	svc.now = func() time.Time { return time.Date(2024, time.March, 5, 14, 7, 9, 0, time.Local) }

	blog, err := svc.Create(context.Background(), alice, validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, blog.ID)
	assert.Equal(t, "Hello", blog.Title)
	assert.Equal(t, alice.Email, blog.Author)
	assert.Equal(t, "5 Mar 2024", blog.FormattedDate)
	assert.Equal(t, "3/5/2024, 2:07:09 PM", blog.Date)
	assert.NotNil(t, blog.Comments)
	assert.Empty(t, blog.Comments)
	assert.True(t, strings.HasPrefix(blog.Picture, "/uploads/"+alice.ID+"_blog_"))

	assert.Equal(t, 1, repo.count())
	assert.Equal(t, "png-bytes", images.saved[blog.Picture])
}

func TestBlogService_Create_FormattedDateShape(t *testing.T) {
	svc, _, _ := newTestBlogService(t)
	blog := createBlog(t, svc)
	assert.Regexp(t, regexp.MustCompile(`^\d{1,2} [A-Z][a-z]{2} \d{4}$`), blog.FormattedDate)
}

func TestBlogService_Create_MissingFieldsWriteNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateBlogInput)
	}{
		{"no title", func(in *CreateBlogInput) { in.Title = "" }},
		{"no description", func(in *CreateBlogInput) { in.Description = "" }},
		{"no content", func(in *CreateBlogInput) { in.Content = "" }},
		{"no image", func(in *CreateBlogInput) { in.Image = nil }},
		{"image without filename", func(in *CreateBlogInput) { in.Image.Filename = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, images := newTestBlogService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), alice, in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "All fields are required", appErr.Message)

			assert.Zero(t, repo.count())
			assert.Empty(t, images.saved)
		})
	}
}

func TestBlogService_Create_UploadFailureWritesNothing(t *testing.T) {
	svc, repo, images := newTestBlogService(t)
	images.saveErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), alice, validInput())
	require.ErrorIs(t, err, apperror.ErrUpload)
	assert.Zero(t, repo.count())
}

func TestBlogService_Create_StoreFailureRemovesImage(t *testing.T) {
	svc, repo, images := newTestBlogService(t)
	repo.createErr = errors.New("store unavailable")

	_, err := svc.Create(context.Background(), alice, validInput())
	require.Error(t, err)
	assert.Empty(t, images.saved)
}

func TestBlogService_Create_RequiresUser(t *testing.T) {
	svc, _, _ := newTestBlogService(t)
	_, err := svc.Create(context.Background(), nil, validInput())
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// =========================================================================
// List / Get
// =========================================================================

func TestBlogService_ListNewestFirst(t *testing.T) {
	svc, _, _ := newTestBlogService(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		i := i
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		ids = append(ids, createBlog(t, svc).ID)
	}

	blogs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, blogs, 3)
	assert.Equal(t, ids[2], blogs[0].ID)
	assert.Equal(t, ids[0], blogs[2].ID)
}

func TestBlogService_ListStoreFailureSurfaces(t *testing.T) {
	svc, repo, _ := newTestBlogService(t)
	repo.listErr = errors.New("connection refused")

	blogs, err := svc.List(context.Background())
	assert.Error(t, err)
	assert.Nil(t, blogs)
}

func TestBlogService_Get(t *testing.T) {
	svc, repo, _ := newTestBlogService(t)
	created := createBlog(t, svc)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	repo.getErr = errors.New("timeout")
	_, err = svc.Get(context.Background(), created.ID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// Comments, likes, replies
// =========================================================================

func TestBlogService_CommentLikeReplyScenario(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBlogService(t)
	blog := createBlog(t, svc)

	c, err := svc.AddComment(ctx, alice, blog.ID, "Nice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", c.Author)
	assert.Equal(t, alice.Picture, c.AuthorPicture)

	liked, err := svc.ToggleLike(ctx, bob, blog.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, svc.AddReply(ctx, bob, blog.ID, c.ID, "thanks"))

	got, err := svc.Get(ctx, blog.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	stored := got.Comments[0]
	assert.Equal(t, "Nice", stored.Content)
	assert.Equal(t, []string{bob.Email}, stored.Likes)
	require.Len(t, stored.Replies, 1)
	assert.Equal(t, model.Reply{Content: "thanks", Author: bob.Email}, stored.Replies[0])

	liked, err = svc.ToggleLike(ctx, bob, blog.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = svc.Get(ctx, blog.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments[0].Likes)
}

func TestBlogService_CommentAuthorFallsBackToEmail(t *testing.T) {
	svc, _, _ := newTestBlogService(t)
	blog := createBlog(t, svc)

	c, err := svc.AddComment(context.Background(), bob, blog.ID, "")
	require.NoError(t, err)
	assert.Equal(t, bob.Email, c.Author)
	assert.Equal(t, "", c.Content)
}

func TestBlogService_Create_NonASCIIImageName(t *testing.T) {
	images, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	repo := newFakeBlogRepo()
	svc := NewBlogService(repo, images, testLogger())

	in := validInput()
	in.Image = &ImageUpload{Filename: "写真.jpg", Body: strings.NewReader("jpg-bytes")}

	blog, err := svc.Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/u-alice_blog_\d+_[0-9a-v]{20}\.jpg$`, blog.Picture)
	assert.Equal(t, 1, repo.count())
}

func TestBlogService_MutationsOnMissingTargets(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBlogService(t)
	blog := createBlog(t, svc)

	_, err := svc.AddComment(ctx, alice, "missing", "x")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ToggleLike(ctx, alice, "missing", "c")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.AddReply(ctx, alice, "missing", "c", "x")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ToggleLike(ctx, alice, blog.ID, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.AddReply(ctx, alice, blog.ID, "missing", "x")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := svc.Get(ctx, blog.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments)
}

func TestBlogService_MutationsRequireUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBlogService(t)

	_, err := svc.AddComment(ctx, nil, "b", "x")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = svc.ToggleLike(ctx, nil, "b", "c")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.ErrorIs(t, svc.AddReply(ctx, nil, "b", "c", "x"), apperror.ErrUnauthorized)
}

func TestBlogService_ConcurrentComments(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBlogService(t)
	blog := createBlog(t, svc)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddComment(ctx, alice, blog.ID, "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, blog.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, n)
}
