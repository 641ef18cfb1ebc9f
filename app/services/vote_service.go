package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blogapi/app/apperrors"
	"blogapi/app/metrics"
	"blogapi/app/models"
	"blogapi/app/repositories"

	"go.uber.org/zap"
)

// VoteLedger keeps at most one vote per (user, post) and applies the toggle
// rules. It only works inside a transaction supplied by the caller.
type VoteLedger struct {
	now func() time.Time
}

// Apply casts a vote and returns the resulting state with the score delta
// it implies.
func (l VoteLedger) Apply(txn repositories.VoteTxn, userID, postID int, cast models.VoteState) (models.VoteState, int, error) {
	if !cast.Castable() {
		return models.NoVote, 0, models.ErrInvalidVoteType
	}

	current := models.NoVote
	existing, err := txn.Vote(userID, postID)
	switch {
	case err == nil:
		current = existing.Type
	case errors.Is(err, apperrors.ErrNotFound):
		existing = nil
	default:
		return models.NoVote, 0, fmt.Errorf("loading vote: %w", err)
	}

	next, delta := models.Transition(current, cast)
	now := l.clock()
	switch {
	case next == models.NoVote:
		err = txn.DeleteVote(userID, postID)
	case existing != nil:
		existing.Type = next
		existing.UpdatedAt = now
		err = txn.PutVote(existing)
	default:
		err = txn.PutVote(&models.Vote{
			UserID:    userID,
			PostID:    postID,
			Type:      next,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return models.NoVote, 0, fmt.Errorf("writing vote: %w", err)
	}
	return next, delta, nil
}

// Status returns the vote userID holds on postID, NoVote if none.
func (l VoteLedger) Status(txn repositories.VoteTxn, userID, postID int) (models.VoteState, error) {
	vote, err := txn.Vote(userID, postID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.NoVote, nil
	}
	if err != nil {
		return models.NoVote, err
	}
	return vote.Type, nil
}

// Tally counts the votes recorded for postID.
func (l VoteLedger) Tally(txn repositories.VoteTxn, postID int) (Tally, error) {
	votes, err := txn.Votes(postID)
	if err != nil {
		return Tally{}, err
	}
	var t Tally
	for _, v := range votes {
		switch v.Type {
		case models.Upvote:
			t.Upvotes++
		case models.Downvote:
			t.Downvotes++
		}
	}
	return t, nil
}

func (l VoteLedger) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now().UTC()
}

// Tally is the breakdown of a post's votes.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Net is the score the tally implies.
func (t Tally) Net() int {
	return t.Upvotes - t.Downvotes
}

// ScoreAggregator owns the cached score on each post.
type ScoreAggregator struct {
	logger *zap.Logger
}

// RecordDelta adds delta to the post's score in txn and returns the new score.
func (a ScoreAggregator) RecordDelta(txn repositories.VoteTxn, postID, delta int) (int, error) {
	post, err := txn.Post(postID)
	if err != nil {
		return 0, fmt.Errorf("loading post %d: %w", postID, err)
	}
	post.Score += delta
	if err := txn.PutPost(post); err != nil {
		return 0, fmt.Errorf("writing score for post %d: %w", postID, err)
	}
	return post.Score, nil
}

// ReconcileReport compares a post's cached score with its vote records.
type ReconcileReport struct {
	PostID int `json:"post_id"`
	Cached int `json:"cached_score"`
	Tally
}

func (r ReconcileReport) Consistent() bool {
	return r.Cached == r.Net()
}

// Reconcile reads score and votes from one snapshot. A mismatch is logged and
// reported as ErrInvariant; nothing is corrected automatically.
func (a ScoreAggregator) Reconcile(txn repositories.VoteTxn, ledger VoteLedger, postID int) (ReconcileReport, error) {
	post, err := txn.Post(postID)
	if err != nil {
		return ReconcileReport{}, err
	}
	tally, err := ledger.Tally(txn, postID)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{PostID: postID, Cached: post.Score, Tally: tally}
	if !report.Consistent() {
		a.logger.Error("score does not match vote records",
			zap.Int("post_id", postID),
			zap.Int("cached_score", report.Cached),
			zap.Int("upvotes", tally.Upvotes),
			zap.Int("downvotes", tally.Downvotes),
		)
		return report, apperrors.Newf(apperrors.ErrInvariant, http.StatusInternalServerError,
			"post %d score %d does not match votes (%d up, %d down)", postID, report.Cached, tally.Upvotes, tally.Downvotes)
	}
	return report, nil
}

// VoteResult is what a voter sees after casting a vote.
type VoteResult struct {
	VoteType models.VoteState `json:"vote_type"`
	Score    int              `json:"score"`
	Delta    int              `json:"-"`
}

// VoteServiceOptions configures a VoteService. Zero values get defaults.
type VoteServiceOptions struct {
	Retry   RetryPolicy
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// VoteService applies votes. For a given post, the vote record and the
// cached score are written in one transaction under the post's lock, so the
// score always equals upvotes minus downvotes once the call returns.
type VoteService struct {
	votes   repositories.VoteRepository
	locks   *KeyedMutex
	ledger  VoteLedger
	scores  ScoreAggregator
	retry   RetryPolicy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewVoteService(votes repositories.VoteRepository, locks *KeyedMutex, opts VoteServiceOptions) *VoteService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("votes")
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &VoteService{
		votes:   votes,
		locks:   locks,
		ledger:  VoteLedger{now: opts.Now},
		scores:  ScoreAggregator{logger: logger},
		retry:   opts.Retry.withDefaults(),
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// ApplyVote casts cast for userID on postID following the toggle rules:
// the first vote is recorded, repeating it retracts it, and the opposite
// vote replaces it.
func (s *VoteService) ApplyVote(ctx context.Context, userID, postID int, cast models.VoteState) (*VoteResult, error) {
	if !cast.Castable() {
		return nil, models.ErrInvalidVoteType
	}

	unlock := s.locks.Lock(postID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("vote abandoned: %w", err)
	}

	var result VoteResult
	err := s.retry.run(ctx, s.logger, "apply vote", s.metrics.ObserveVoteConflict, func() error {
		return s.votes.Update(func(txn repositories.VoteTxn) error {
			if _, err := txn.Post(postID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NotFound("post %d not found", postID)
				}
				return err
			}

			state, delta, err := s.ledger.Apply(txn, userID, postID, cast)
			if err != nil {
				return err
			}
			score, err := s.scores.RecordDelta(txn, postID, delta)
			if err != nil {
				return err
			}

			// Past the deadline nothing is committed; the caller has
			// already been told the request timed out.
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("vote abandoned before commit: %w", err)
			}
			result = VoteResult{VoteType: state, Score: score, Delta: delta}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveVote(transitionLabel(result.VoteType, result.Delta))
	s.logger.Debug("vote applied",
		zap.Int("post_id", postID),
		zap.Int("user_id", userID),
		zap.Stringer("vote", result.VoteType),
		zap.Int("delta", result.Delta),
		zap.Int("score", result.Score),
	)
	return &result, nil
}

func transitionLabel(after models.VoteState, delta int) string {
	switch {
	case after == models.NoVote:
		return "removed"
	case delta == 2 || delta == -2:
		return "switched"
	default:
		return "added"
	}
}

// VoteStatus returns the vote userID currently holds on postID.
func (s *VoteService) VoteStatus(ctx context.Context, userID, postID int) (models.VoteState, error) {
	state := models.NoVote
	err := s.votes.View(func(txn repositories.VoteTxn) error {
		if _, err := txn.Post(postID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("post %d not found", postID)
			}
			return err
		}
		var err error
		state, err = s.ledger.Status(txn, userID, postID)
		return err
	})
	return state, err
}

// Tally returns the upvote and downvote counts for postID.
func (s *VoteService) Tally(ctx context.Context, postID int) (Tally, error) {
	var tally Tally
	err := s.votes.View(func(txn repositories.VoteTxn) error {
		var err error
		tally, err = s.ledger.Tally(txn, postID)
		return err
	})
	return tally, err
}

// Reconcile checks that the cached score of postID matches its votes.
func (s *VoteService) Reconcile(ctx context.Context, postID int) (ReconcileReport, error) {
	var report ReconcileReport
	err := s.votes.View(func(txn repositories.VoteTxn) error {
		var err error
		report, err = s.scores.Reconcile(txn, s.ledger, postID)
		return err
	})
	if errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvariant) {
		return report, apperrors.NotFound("post %d not found", postID)
	}
	return report, err
}
