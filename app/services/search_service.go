package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogapi/app/apperrors"
	"blogapi/app/metrics"
	"blogapi/app/models"
	"blogapi/app/repositories"
	"blogapi/app/search"

	"go.uber.org/zap"
)

// SearchOptions configures a SearchService. Zero values get defaults.
type SearchOptions struct {
	DefaultPerPage int
	MaxPerPage     int
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// SearchService answers keyword queries from the index and loads the
// matching posts.
type SearchService struct {
	index          *search.Index
	postRepo       repositories.PostRepository
	defaultPerPage int
	maxPerPage     int
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewSearchService(index *search.Index, postRepo repositories.PostRepository, opts SearchOptions) *SearchService {
	if opts.DefaultPerPage <= 0 {
		opts.DefaultPerPage = defaultPerPage
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = maxPerPage
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &SearchService{
		index:          index,
		postRepo:       postRepo,
		defaultPerPage: opts.DefaultPerPage,
		maxPerPage:     opts.MaxPerPage,
		metrics:        opts.Metrics,
		logger:         opts.Logger.Named("search"),
	}
}

// SearchPage is one page of ranked results.
type SearchPage struct {
	Query   string
	Results []*models.Post
	PageInfo
}

// Search returns the page-th page of posts matching q, best match first.
func (s *SearchService) Search(ctx context.Context, q string, page, perPage int) (*SearchPage, error) {
	page, perPage, err := normalizePaging(page, perPage, s.defaultPerPage, s.maxPerPage)
	if err != nil {
		s.metrics.ObserveSearch("invalid", 0)
		return nil, err
	}

	ids, err := s.index.Query(q)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			s.metrics.ObserveSearch("invalid", 0)
		} else {
			s.metrics.ObserveSearch("error", 0)
		}
		return nil, err
	}

	start, end, info := pageBounds(len(ids), page, perPage)
	results := make([]*models.Post, 0, end-start)
	for _, id := range ids[start:end] {
		post, err := s.postRepo.GetByID(id)
		if errors.Is(err, apperrors.ErrNotFound) {
			// deleted between query and load
			continue
		}
		if err != nil {
			s.metrics.ObserveSearch("error", 0)
			return nil, fmt.Errorf("loading search result %d: %w", id, err)
		}
		results = append(results, post)
	}

	outcome := "hit"
	if len(ids) == 0 {
		outcome = "zero_result"
	}
	s.metrics.ObserveSearch(outcome, len(ids))
	s.logger.Debug("search", zap.String("query", q), zap.Int("matches", len(ids)))

	return &SearchPage{
		Query:    strings.TrimSpace(q),
		Results:  results,
		PageInfo: info,
	}, nil
}
