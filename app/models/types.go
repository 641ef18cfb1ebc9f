package models

import "time"

// Post represents a blog post. Score is the cached net vote total and is
// only ever changed through the vote path.
type Post struct {
	ID        int       `json:"id" validate:"gte=0"`
	Title     string    `json:"title" validate:"required,min=1,max=200"`
	Body      string    `json:"body" validate:"required,min=10"`
	Author    string    `json:"author" validate:"required,min=1,max=100"`
	AuthorID  int       `json:"author_id" validate:"gte=0"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment represents a comment on a blog post.
type Comment struct {
	ID             int       `json:"id" validate:"gte=0"`
	PostID         int       `json:"post_id" validate:"required,gt=0"`
	AuthorID       int       `json:"author_id" validate:"required,gt=0"`
	AuthorUsername string    `json:"author_username" validate:"required"`
	Content        string    `json:"content" validate:"required,min=1,max=1000"`
	CreatedAt      time.Time `json:"created_at" validate:"required"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is a registered account. PasswordHash is persisted but never rendered.
type User struct {
	ID           int       `json:"id" validate:"gte=0"`
	Username     string    `json:"username" validate:"required,min=3,max=80,username"`
	Email        string    `json:"email" validate:"required,email,max=120"`
	PasswordHash string    `json:"password_hash" validate:"required"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at" validate:"required"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Vote is the single vote a user holds on a post. A user with no vote has no
// record at all.
type Vote struct {
	UserID    int       `json:"user_id" validate:"required,gt=0"`
	PostID    int       `json:"post_id" validate:"required,gt=0"`
	Type      VoteState `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
