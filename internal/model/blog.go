// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"slices"
	"time"
)

// Blog is one post together with its whole comment tree.
//
// DOCUMENT SHAPE:
// A Blog is stored as a single self-contained document. It exclusively owns
// its Comments, and each Comment owns its Replies and its Likes. Nothing is
// shared between parents, so every mutation touches exactly one document.
//
// The struct carries both json and bson tags: json for the SQLite document
// column and the /api responses, bson for the MongoDB collection.
type Blog struct {
	ID            string    `json:"id"            bson:"id"`
	Title         string    `json:"title"         bson:"title"`
	Description   string    `json:"description"   bson:"description"`
	Content       string    `json:"content"       bson:"content"`
	Picture       string    `json:"picture"       bson:"picture"` // relative path, e.g. /uploads/x.png
	Author        string    `json:"author"        bson:"author"`  // author email
	Date          string    `json:"date"          bson:"date"`
	FormattedDate string    `json:"formattedDate" bson:"formattedDate"`
	Comments      []Comment `json:"comments"      bson:"comments"`
	CreatedAt     time.Time `json:"createdAt"     bson:"createdAt"`
}

// Comment is a top-level comment on a Blog.
//
// Likes is a set of emails. It is stored as a slice because both JSON and
// BSON encode arrays naturally; ToggleLike keeps the set invariant.
type Comment struct {
	ID            string   `json:"id"            bson:"id"`
	Content       string   `json:"content"       bson:"content"`
	Author        string   `json:"author"        bson:"author"` // display name
	AuthorPicture string   `json:"authorPicture" bson:"authorPicture"`
	Replies       []Reply  `json:"replies"       bson:"replies"`
	Likes         []string `json:"likes"         bson:"likes"`
}

// Reply is an answer to a Comment. Replies have no id and are never edited.
type Reply struct {
	Content       string `json:"content"       bson:"content"`
	Author        string `json:"author"        bson:"author"` // author email
	AuthorPicture string `json:"authorPicture" bson:"authorPicture"`
}

// Date layouts used for the two display strings stored on a Blog.
const (
	DisplayDateLayout = "2 Jan 2006"
	LongDateLayout    = "1/2/2006, 3:04:05 PM"
)

// FormatDisplayDate renders t as "D Mon YYYY", e.g. "7 Mar 2026".
func FormatDisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// FormatLongDate renders t as "M/D/YYYY, h:mm:ss AM".
func FormatLongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// =========================================================================
// MUTATION ENGINE
// =========================================================================
//
// The methods below are the in-memory half of every nested-array update.
// A store that cannot express these updates atomically (SQLite) runs them
// inside an optimistic read-modify-write loop; MongoDB uses equivalent
// server-side operators instead.

// AppendComment adds c to the end of the comment list. Existing comments are
// never reordered.
func (b *Blog) AppendComment(c Comment) {
	if c.Replies == nil {
		c.Replies = []Reply{}
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	b.Comments = append(b.Comments, c)
}

// FindComment returns a pointer into b.Comments so callers can mutate the
// comment in place. The bool is false when no comment has that id.
func (b *Blog) FindComment(id string) (*Comment, bool) {
	for i := range b.Comments {
		if b.Comments[i].ID == id {
			return &b.Comments[i], true
		}
	}
	return nil, false
}

// HasLike reports whether email is in the comment's likes set.
func (c *Comment) HasLike(email string) bool {
	return slices.Contains(c.Likes, email)
}

// ToggleLike removes email if present, otherwise adds it. It returns true
// when the comment is liked by email after the call.
func (c *Comment) ToggleLike(email string) bool {
	if c.HasLike(email) {
		c.Likes = slices.DeleteFunc(c.Likes, func(e string) bool { return e == email })
		return false
	}
	c.Likes = append(c.Likes, email)
	return true
}

// AppendReply adds r to the end of the reply list.
func (c *Comment) AppendReply(r Reply) {
	c.Replies = append(c.Replies, r)
}

// LikeCount is a template helper. It takes a value receiver so it can be
// called on comments the template ranges over by value.
func (c Comment) LikeCount() int {
	return len(c.Likes)
}
