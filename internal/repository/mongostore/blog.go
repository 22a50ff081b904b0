package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

var _ repository.BlogRepository = (*Store)(nil)

// maxToggleAttempts bounds ToggleLike when concurrent toggles by the same
// user keep flipping the state between our two conditional updates.
const maxToggleAttempts = 5

// Create inserts blog. A duplicate id returns apperror.ErrConflict via the
// unique index on "id".
func (s *Store) Create(ctx context.Context, blog *model.Blog) error {
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now()
	}
	if blog.Comments == nil {
		blog.Comments = []model.Comment{}
	}
	if _, err := s.blogs.InsertOne(ctx, blog); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("blog", blog.ID)
		}
		return fmt.Errorf("mongo: creating blog: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no blog has the given id.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	var blog model.Blog
	err := s.blogs.FindOne(ctx, bson.M{"id": id}).Decode(&blog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("blog", id)
		}
		return nil, fmt.Errorf("mongo: getting blog %s: %w", id, err)
	}
	return &blog, nil
}

// List returns all blogs sorted by createdAt descending. _id (an ObjectID,
// monotonically increasing per client) breaks ties.
func (s *Store) List(ctx context.Context) ([]model.Blog, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := s.blogs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing blogs: %w", err)
	}
	blogs := []model.Blog{}
	if err := cur.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("mongo: decoding blogs: %w", err)
	}
	return blogs, nil
}

// AppendComment pushes comment onto the blog's comment array in one update.
func (s *Store) AppendComment(ctx context.Context, blogID string, comment model.Comment) error {
	if comment.Replies == nil {
		comment.Replies = []model.Reply{}
	}
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	res, err := s.blogs.UpdateOne(ctx,
		bson.M{"id": blogID},
		bson.M{"$push": bson.M{"comments": comment}},
	)
	if err != nil {
		return fmt.Errorf("mongo: appending comment to blog %s: %w", blogID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("blog", blogID)
	}
	return nil
}

// ToggleLike decides like/unlike on the server.
//
// The first update only matches when the comment exists AND email is not in
// its likes; $addToSet then adds it. If that matched nothing, the second
// update only matches when email IS in the likes and pulls it. Each step is
// one atomic document update, so concurrent likes from different users can
// never overwrite each other.
//
// If neither matched, either the comment doesn't exist or another request
// from the same user flipped the state between the two steps; we check
// which and retry in the latter case.
func (s *Store) ToggleLike(ctx context.Context, blogID, commentID, email string) (bool, error) {
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		filter, update := likeUpdate(blogID, commentID, email)
		res, err := s.blogs.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, fmt.Errorf("mongo: liking comment %s: %w", commentID, err)
		}
		if res.MatchedCount == 1 {
			return true, nil
		}

		filter, update = unlikeUpdate(blogID, commentID, email)
		res, err = s.blogs.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, fmt.Errorf("mongo: unliking comment %s: %w", commentID, err)
		}
		if res.MatchedCount == 1 {
			return false, nil
		}

		exists, err := s.commentExists(ctx, blogID, commentID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, apperror.NotFound("comment", commentID)
		}
	}
	return false, apperror.Conflict("comment", commentID)
}

// likeUpdate matches the comment only while email is absent from its likes.
func likeUpdate(blogID, commentID, email string) (filter, update bson.M) {
	filter = bson.M{"id": blogID, "comments": bson.M{"$elemMatch": bson.M{
		"id":    commentID,
		"likes": bson.M{"$ne": email},
	}}}
	update = bson.M{"$addToSet": bson.M{"comments.$.likes": email}}
	return filter, update
}

// unlikeUpdate matches the comment only while email is in its likes.
func unlikeUpdate(blogID, commentID, email string) (filter, update bson.M) {
	filter = bson.M{"id": blogID, "comments": bson.M{"$elemMatch": bson.M{
		"id":    commentID,
		"likes": email,
	}}}
	update = bson.M{"$pull": bson.M{"comments.$.likes": email}}
	return filter, update
}

// AppendReply pushes onto the matched comment's replies via the positional
// operator. Zero matches means the blog or the comment is missing.
func (s *Store) AppendReply(ctx context.Context, blogID, commentID string, reply model.Reply) error {
	res, err := s.blogs.UpdateOne(ctx,
		bson.M{"id": blogID, "comments.id": commentID},
		bson.M{"$push": bson.M{"comments.$.replies": reply}},
	)
	if err != nil {
		return fmt.Errorf("mongo: appending reply to comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

func (s *Store) commentExists(ctx context.Context, blogID, commentID string) (bool, error) {
	n, err := s.blogs.CountDocuments(ctx,
		bson.M{"id": blogID, "comments.id": commentID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo: checking comment %s: %w", commentID, err)
	}
	return n > 0, nil
}
