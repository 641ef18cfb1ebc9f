package models

import (
	"errors"
	"strings"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ValidationFailure("invalid post", err)
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate trims input and stamps the creation time. New posts always
// start with a zero score.
func (p *Post) BeforeCreate() {
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	p.Score = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID int) bool {
	return p.AuthorID != 0 && p.AuthorID == userID
}
