package controllers

import (
	"time"

	"blogapi/app/models"
	"blogapi/app/render"
	"blogapi/app/services"
)

// Request bodies. Validation here only checks shape; the services apply the
// model rules after sanitising.

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createPostRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required"`
	Author string `json:"author" validate:"max=100"`
}

type updatePostRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
	Body  *string `json:"body"`
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type voteRequest struct {
	VoteType string `json:"vote_type" validate:"required,oneof=upvote downvote"`
}

// Responses.

type userResponse struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// newUserResponse never exposes the password hash. The email is only shown
// to the account owner.
func newUserResponse(u *models.User, self bool) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if self {
		resp.Email = u.Email
	}
	return resp
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

func newTokenResponse(s *services.Session) tokenResponse {
	return tokenResponse{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		User:        newUserResponse(s.User, true),
	}
}

type postSummary struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	AuthorID  int       `json:"author_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPostSummary(p *models.Post) postSummary {
	return postSummary{
		ID:        p.ID,
		Title:     p.Title,
		Author:    p.Author,
		AuthorID:  p.AuthorID,
		Score:     p.Score,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type postResponse struct {
	postSummary
	Body         string `json:"body"`
	BodyHTML     string `json:"body_html"`
	Upvotes      int    `json:"upvotes"`
	Downvotes    int    `json:"downvotes"`
	CommentCount int    `json:"comment_count"`
}

func newPostResponse(p *models.Post, tally services.Tally, comments int) postResponse {
	return postResponse{
		postSummary:  newPostSummary(p),
		Body:         p.Body,
		BodyHTML:     render.Markdown(p.Body),
		Upvotes:      tally.Upvotes,
		Downvotes:    tally.Downvotes,
		CommentCount: comments,
	}
}

type postListResponse struct {
	Posts []postSummary `json:"posts"`
	services.PageInfo
}

type commentResponse struct {
	ID             int       `json:"id"`
	PostID         int       `json:"post_id"`
	AuthorID       int       `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func newCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:             c.ID,
		PostID:         c.PostID,
		AuthorID:       c.AuthorID,
		AuthorUsername: c.AuthorUsername,
		Content:        c.Content,
		CreatedAt:      c.CreatedAt,
	}
}

type commentListResponse struct {
	Comments []commentResponse `json:"comments"`
	services.PageInfo
}

type voteStatusResponse struct {
	VoteType models.VoteState `json:"vote_type"`
}

type searchResult struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
	Pages   int            `json:"pages"`
	Results []searchResult `json:"results"`
}
