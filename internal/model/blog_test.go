package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDisplayDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"single digit day", time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC), "7 Mar 2026"},
		{"double digit day", time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC), "25 Dec 2024"},
		{"first of year", time.Date(2025, time.January, 1, 23, 59, 0, 0, time.UTC), "1 Jan 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDisplayDate(tt.in))
		})
	}
}

func TestFormatLongDate(t *testing.T) {
	got := FormatLongDate(time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, "10/19/2026, 3:04:05 PM", got)
}

func TestAppendComment_PreservesOrder(t *testing.T) {
	b := &Blog{ID: "b1"}
	b.AppendComment(Comment{ID: "c1"})
	b.AppendComment(Comment{ID: "c2"})
	b.AppendComment(Comment{ID: "c3"})

	require.Len(t, b.Comments, 3)
	assert.Equal(t, "c1", b.Comments[0].ID)
	assert.Equal(t, "c3", b.Comments[2].ID)
	// New comments start with non-nil empty collections so they encode as [].
	assert.NotNil(t, b.Comments[0].Replies)
	assert.NotNil(t, b.Comments[0].Likes)
}

func TestFindComment(t *testing.T) {
	b := &Blog{ID: "b1"}
	b.AppendComment(Comment{ID: "c1", Content: "hi"})

	c, ok := b.FindComment("c1")
	require.True(t, ok)
	c.Content = "edited"
	assert.Equal(t, "edited", b.Comments[0].Content, "FindComment must return a pointer into the slice")

	c, ok = b.FindComment("missing")
	assert.False(t, ok)
	assert.Nil(t, c)
}

func TestToggleLike_IsItsOwnInverse(t *testing.T) {
	c := &Comment{ID: "c1", Likes: []string{"b@x.com"}}

	assert.True(t, c.ToggleLike("a@x.com"))
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, c.Likes)

	assert.False(t, c.ToggleLike("a@x.com"))
	assert.Equal(t, []string{"b@x.com"}, c.Likes)
}

func TestToggleLike_NeverDuplicates(t *testing.T) {
	c := &Comment{ID: "c1"}
	c.ToggleLike("a@x.com")
	assert.True(t, c.HasLike("a@x.com"))
	assert.Equal(t, 1, c.LikeCount())

	// liked -> unliked -> liked; the set never holds the email twice
	c.ToggleLike("a@x.com")
	c.ToggleLike("a@x.com")
	assert.Equal(t, []string{"a@x.com"}, c.Likes)
}

func TestAppendReply_IsAppendOnly(t *testing.T) {
	c := &Comment{ID: "c1"}
	for i, text := range []string{"one", "two", "three"} {
		c.AppendReply(Reply{Content: text, Author: "a@x.com"})
		require.Len(t, c.Replies, i+1)
	}
	assert.Equal(t, "one", c.Replies[0].Content)
	assert.Equal(t, "three", c.Replies[2].Content)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", User{Name: "Ada", Email: "ada@x.com"}.DisplayName())
	assert.Equal(t, "ada@x.com", User{Email: "ada@x.com"}.DisplayName())
}
