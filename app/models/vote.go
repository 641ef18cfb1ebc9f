package models

import (
	"encoding/json"
	"fmt"
	"net/http"

	"blogapi/app/apperrors"
)

// VoteState is the vote a user holds on a post: none, up or down.
type VoteState uint8

const (
	NoVote VoteState = iota
	Upvote
	Downvote
)

var ErrInvalidVoteType = apperrors.Validation(
	"vote_type must be 'upvote' or 'downvote'",
	map[string]string{"vote_type": "must be one of: upvote downvote"},
)

// ParseVoteType accepts only the two castable vote types.
func ParseVoteType(s string) (VoteState, error) {
	switch s {
	case "upvote":
		return Upvote, nil
	case "downvote":
		return Downvote, nil
	default:
		return NoVote, ErrInvalidVoteType
	}
}

func (s VoteState) String() string {
	switch s {
	case Upvote:
		return "upvote"
	case Downvote:
		return "downvote"
	default:
		return "none"
	}
}

// Value is the contribution of the state to a post's score.
func (s VoteState) Value() int {
	switch s {
	case Upvote:
		return 1
	case Downvote:
		return -1
	default:
		return 0
	}
}

// Castable reports whether s may be submitted by a voter.
func (s VoteState) Castable() bool {
	return s == Upvote || s == Downvote
}

// MarshalJSON renders NoVote as null.
func (s VoteState) MarshalJSON() ([]byte, error) {
	if s == NoVote {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

func (s *VoteState) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoVote
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("vote state: %w", err)
	}
	parsed, err := ParseVoteType(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Transition applies a cast vote to the current state. Casting the held vote
// clears it, anything else replaces it. Delta is the resulting score change.
func Transition(current, cast VoteState) (next VoteState, delta int) {
	if current == cast {
		next = NoVote
	} else {
		next = cast
	}
	return next, next.Value() - current.Value()
}

// Validate checks the vote record before it is stored.
func (v *Vote) Validate() error {
	if err := validate.Struct(v); err != nil {
		return ValidationFailure("invalid vote", err)
	}
	if !v.Type.Castable() {
		return apperrors.New(apperrors.ErrValidation, http.StatusBadRequest, "stored vote must be an upvote or a downvote")
	}
	return nil
}
