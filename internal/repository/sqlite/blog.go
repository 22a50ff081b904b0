package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// Compile-time check that *DB implements repository.BlogRepository.
var _ repository.BlogRepository = (*DB)(nil)

// MaxMutationRetries bounds the optimistic-concurrency loop in mutateBlog.
// Each retry means another writer committed a change to the same blog
// between our read and our write.
const MaxMutationRetries = 50

// Create inserts a new blog document.
//
// The caller supplies the ID. CreatedAt defaults to now when unset.
// A duplicate ID surfaces as apperror.ErrConflict rather than silently
// overwriting the existing document.
func (db *DB) Create(ctx context.Context, blog *model.Blog) error {
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now()
	}
	if blog.Comments == nil {
		blog.Comments = []model.Comment{}
	}

	doc, err := json.Marshal(blog)
	if err != nil {
		return fmt.Errorf("sqlite: encoding blog %s: %w", blog.ID, err)
	}

	// INSERT OR IGNORE + RowsAffected detects the duplicate without having to
	// parse driver-specific constraint errors.
	result, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO blogs (id, created_at, version, doc) VALUES (?, ?, 1, ?)`,
		blog.ID,
		blog.CreatedAt.UnixNano(),
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating blog: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("blog", blog.ID)
	}
	return nil
}

// GetByID retrieves one blog document.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	blog, _, err := db.loadBlog(ctx, id)
	return blog, err
}

// List returns every blog, newest first. rowid breaks ties between blogs
// created within the same nanosecond.
func (db *DB) List(ctx context.Context) ([]model.Blog, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM blogs ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	defer rows.Close()

	blogs := []model.Blog{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning blog row: %w", err)
		}
		var b model.Blog
		if err := json.Unmarshal([]byte(doc), &b); err != nil {
			return nil, fmt.Errorf("sqlite: decoding blog document: %w", err)
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating blogs: %w", err)
	}

	return blogs, nil
}

// AppendComment pushes comment onto the blog's comment list.
func (db *DB) AppendComment(ctx context.Context, blogID string, comment model.Comment) error {
	return db.mutateBlog(ctx, blogID, func(b *model.Blog) error {
		b.AppendComment(comment)
		return nil
	})
}

// ToggleLike flips email's like on one comment.
func (db *DB) ToggleLike(ctx context.Context, blogID, commentID, email string) (bool, error) {
	var liked bool
	err := db.mutateBlog(ctx, blogID, func(b *model.Blog) error {
		c, ok := b.FindComment(commentID)
		if !ok {
			return apperror.NotFound("comment", commentID)
		}
		liked = c.ToggleLike(email)
		return nil
	})
	return liked, err
}

// AppendReply pushes reply onto one comment's reply list.
func (db *DB) AppendReply(ctx context.Context, blogID, commentID string, reply model.Reply) error {
	return db.mutateBlog(ctx, blogID, func(b *model.Blog) error {
		c, ok := b.FindComment(commentID)
		if !ok {
			return apperror.NotFound("comment", commentID)
		}
		c.AppendReply(reply)
		return nil
	})
}

// mutateBlog runs fn against a fresh copy of the document and writes it back
// only if nobody else changed the document in between.
//
// OPTIMISTIC CONCURRENCY:
//  1. SELECT doc, version
//  2. apply fn in memory
//  3. UPDATE ... SET version = version + 1 WHERE id = ? AND version = ?
//
// If step 3 affects zero rows, a concurrent writer won the race; we start
// again from step 1 with their changes included. No lock is held between
// steps, and no update is lost.
func (db *DB) mutateBlog(ctx context.Context, id string, fn func(*model.Blog) error) error {
	for attempt := 0; attempt < MaxMutationRetries; attempt++ {
		blog, version, err := db.loadBlog(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(blog); err != nil {
			return err
		}

		doc, err := json.Marshal(blog)
		if err != nil {
			return fmt.Errorf("sqlite: encoding blog %s: %w", id, err)
		}

		result, err := db.conn.ExecContext(ctx,
			`UPDATE blogs SET doc = ?, version = version + 1 WHERE id = ? AND version = ?`,
			string(doc), id, version,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating blog %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 1 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return apperror.Conflict("blog", id)
}

func (db *DB) loadBlog(ctx context.Context, id string) (*model.Blog, int64, error) {
	var (
		doc     string
		version int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT doc, version FROM blogs WHERE id = ?`, id,
	).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, apperror.NotFound("blog", id)
		}
		return nil, 0, fmt.Errorf("sqlite: getting blog %s: %w", id, err)
	}

	var blog model.Blog
	if err := json.Unmarshal([]byte(doc), &blog); err != nil {
		return nil, 0, fmt.Errorf("sqlite: decoding blog %s: %w", id, err)
	}
	return &blog, version, nil
}
