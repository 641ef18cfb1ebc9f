package models

import (
	"strings"
	"testing"
	"time"

	"blogapi/app/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestPostValidation(t *testing.T) {
	tests := []struct {
		name      string
		post      *Post
		wantErr   bool
		wantField string
	}{
		{
			name: "valid post",
			post: &Post{
				Title:     "Test Post",
				Body:      "This is a valid post body",
				Author:    "alice",
				CreatedAt: time.Now(),
			},
		},
		{
			name: "empty title",
			post: &Post{
				Body:      "This is a valid post body",
				Author:    "alice",
				CreatedAt: time.Now(),
			},
			wantErr:   true,
			wantField: "title",
		},
		{
			name: "title too long",
			post: &Post{
				Title:     strings.Repeat("a", 201),
				Body:      "This is a valid post body",
				Author:    "alice",
				CreatedAt: time.Now(),
			},
			wantErr:   true,
			wantField: "title",
		},
		{
			name: "body too short",
			post: &Post{
				Title:     "Test Post",
				Body:      "short",
				Author:    "alice",
				CreatedAt: time.Now(),
			},
			wantErr:   true,
			wantField: "body",
		},
		{
			name: "missing author",
			post: &Post{
				Title:     "Test Post",
				Body:      "This is a valid post body",
				CreatedAt: time.Now(),
			},
			wantErr:   true,
			wantField: "author",
		},
		{
			name: "zero creation time",
			post: &Post{
				Title:  "Test Post",
				Body:   "This is a valid post body",
				Author: "alice",
			},
			wantErr:   true,
			wantField: "created_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, apperrors.FieldErrors(err), tt.wantField)
		})
	}
}

func TestPostBeforeCreate(t *testing.T) {
	post := &Post{
		Title:  "  Padded title  ",
		Body:   "This is a valid post body",
		Author: " bob ",
		Score:  42,
	}

	post.BeforeCreate()

	assert.Equal(t, "Padded title", post.Title)
	assert.Equal(t, "bob", post.Author)
	assert.Zero(t, post.Score)
	assert.False(t, post.CreatedAt.IsZero())
	assert.Equal(t, post.CreatedAt, post.UpdatedAt)
}

func TestPostIsAuthoredBy(t *testing.T) {
	post := &Post{AuthorID: 3}

	assert.True(t, post.IsAuthoredBy(3))
	assert.False(t, post.IsAuthoredBy(4))
	assert.False(t, (&Post{}).IsAuthoredBy(0))
}
