package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"blogapi/app/apperrors"
	"blogapi/app/models"
	"blogapi/app/render"
	"blogapi/app/repositories"

	"go.uber.org/zap"
)

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
	retry       RetryPolicy
	logger      *zap.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		retry:       defaultRetryPolicy(),
		logger:      logger.Named("comments"),
	}
}

// CreateComment adds a comment by author to post postID.
func (s *CommentService) CreateComment(ctx context.Context, author *models.User, postID int, content string) (*models.Comment, error) {
	if author == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if err := s.ensurePost(postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:         postID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        render.PlainText(content),
	}
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return nil, err
	}

	// A concurrent delete of the post shows up as a conflict; the retry then
	// finds the post gone.
	err := s.retry.run(ctx, s.logger, "create comment", nil, func() error {
		return s.commentRepo.Create(comment)
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("post %d not found", postID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

// CommentPage is one page of a post's comments, newest first.
type CommentPage struct {
	Comments []*models.Comment
	PageInfo
}

// ListComments returns a page of comments for postID, newest first.
func (s *CommentService) ListComments(ctx context.Context, postID, page, perPage int) (*CommentPage, error) {
	page, perPage, err := normalizePaging(page, perPage, 20, maxPerPage)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePost(postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})

	start, end, info := pageBounds(len(comments), page, perPage)
	return &CommentPage{Comments: comments[start:end], PageInfo: info}, nil
}

// CountComments returns how many comments postID has.
func (s *CommentService) CountComments(ctx context.Context, postID int) (int, error) {
	return s.commentRepo.CountByPost(postID)
}

func (s *CommentService) ensurePost(postID int) error {
	_, err := s.postRepo.GetByID(postID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NotFound("post %d not found", postID)
	}
	return err
}
