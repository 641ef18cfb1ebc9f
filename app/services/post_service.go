package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/models"
	"blogapi/app/render"
	"blogapi/app/repositories"
	"blogapi/app/search"

	"go.uber.org/zap"
)

// Sort keys accepted by ListPosts.
const (
	SortPublishedAt = "published_at"
	SortTitle       = "title"
	SortVoteScore   = "vote_score"
)

// PostService handles business logic for blog posts
type PostService struct {
	postRepo repositories.PostRepository
	index    *search.Index
	locks    *KeyedMutex
	retry    RetryPolicy
	logger   *zap.Logger
}

// NewPostService creates a new PostService. locks must be the same
// KeyedMutex the VoteService uses so edits and votes on a post serialise.
func NewPostService(postRepo repositories.PostRepository, index *search.Index, locks *KeyedMutex, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &PostService{
		postRepo: postRepo,
		index:    index,
		locks:    locks,
		retry:    defaultRetryPolicy(),
		logger:   logger.Named("posts"),
	}
}

// CreatePost validates and stores a post written by author, then makes it
// searchable. The author name defaults to the account's username.
func (s *PostService) CreatePost(ctx context.Context, author *models.User, post *models.Post) error {
	if author == nil {
		return apperrors.Unauthorized("authentication required")
	}
	post.ID = 0
	post.AuthorID = author.ID
	post.Title = render.PlainText(post.Title)
	post.Author = render.PlainText(post.Author)
	if post.Author == "" {
		post.Author = author.Username
	}
	post.CreatedAt = time.Time{}
	post.BeforeCreate()

	if err := post.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.retry.run(ctx, s.logger, "create post", nil, func() error {
		return s.postRepo.Create(post)
	})
	if err != nil {
		return fmt.Errorf("creating post: %w", err)
	}

	s.index.IndexPost(documentFor(post))
	s.logger.Info("post created", zap.Int("post_id", post.ID), zap.Int("author_id", author.ID))
	return nil
}

// GetPost retrieves a post by ID
func (s *PostService) GetPost(ctx context.Context, id int) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("post %d not found", id)
	}
	return post, err
}

// ListOptions selects one page of posts and its ordering.
type ListOptions struct {
	Page    int
	PerPage int
	SortBy  string
	Order   string
}

// PostPage is one page of posts.
type PostPage struct {
	Posts []*models.Post
	PageInfo
}

// ListPosts returns a page of posts. The default order is newest first.
func (s *PostService) ListPosts(ctx context.Context, opts ListOptions) (*PostPage, error) {
	page, perPage, err := normalizePaging(opts.Page, opts.PerPage, defaultPerPage, maxPerPage)
	if err != nil {
		return nil, err
	}
	if opts.SortBy == "" {
		opts.SortBy = SortPublishedAt
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	fields := map[string]string{}
	switch opts.SortBy {
	case SortPublishedAt, SortTitle, SortVoteScore:
	default:
		fields["sort_by"] = "must be one of: published_at title vote_score"
	}
	if opts.Order != "asc" && opts.Order != "desc" {
		fields["order"] = "must be one of: asc desc"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid list options", fields)
	}

	posts, err := s.postRepo.List()
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	sortPosts(posts, opts.SortBy, opts.Order == "desc")

	start, end, info := pageBounds(len(posts), page, perPage)
	return &PostPage{Posts: posts[start:end], PageInfo: info}, nil
}

// sortPosts orders by key, breaking ties by id so pages are stable.
func sortPosts(posts []*models.Post, key string, desc bool) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		var cmp int
		switch key {
		case SortTitle:
			cmp = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortVoteScore:
			cmp = a.Score - b.Score
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = a.ID - b.ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// PostUpdate holds the fields an author may change. Nil means unchanged.
type PostUpdate struct {
	Title *string
	Body  *string
}

// UpdatePost applies update to post id on behalf of userID, who must be its
// author. The score is never touched.
func (s *PostService) UpdatePost(ctx context.Context, userID, id int, update PostUpdate) (*models.Post, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(userID) {
		return nil, apperrors.Forbidden("only the author can edit this post")
	}

	if update.Title != nil {
		post.Title = render.PlainText(*update.Title)
	}
	if update.Body != nil {
		post.Body = *update.Body
	}
	post.UpdatedAt = time.Now().UTC()
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.retry.run(ctx, s.logger, "update post", nil, func() error {
		return s.postRepo.Update(post)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("post %d not found", id)
		}
		return nil, fmt.Errorf("updating post %d: %w", id, err)
	}

	s.index.IndexPost(documentFor(post))
	s.logger.Info("post updated", zap.Int("post_id", id))
	return post, nil
}

// DeletePost removes post id with its votes and comments. Only the author
// may delete it.
func (s *PostService) DeletePost(ctx context.Context, userID, id int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	post, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !post.IsAuthoredBy(userID) {
		return apperrors.Forbidden("only the author can delete this post")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// A comment committed mid-delete conflicts with the cascade scan.
	err = s.retry.run(ctx, s.logger, "delete post", nil, func() error {
		return s.postRepo.Delete(id)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("post %d not found", id)
		}
		return fmt.Errorf("deleting post %d: %w", id, err)
	}

	s.index.RemovePost(id)
	s.logger.Info("post deleted", zap.Int("post_id", id))
	return nil
}

// RebuildIndex reloads every stored post into the search index and returns
// how many were indexed.
func (s *PostService) RebuildIndex(ctx context.Context) (int, error) {
	posts, err := s.postRepo.List()
	if err != nil {
		return 0, fmt.Errorf("loading posts for index: %w", err)
	}
	docs := make([]search.Document, 0, len(posts))
	for _, post := range posts {
		docs = append(docs, documentFor(post))
	}
	s.index.Rebuild(docs)
	s.logger.Info("search index rebuilt", zap.Int("posts", len(docs)))
	return len(docs), nil
}

func documentFor(post *models.Post) search.Document {
	return search.Document{
		ID:        post.ID,
		Title:     post.Title,
		Body:      post.Body,
		CreatedAt: post.CreatedAt,
	}
}
