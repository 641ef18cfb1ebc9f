package controllers

import (
	"net/http"

	"blogapi/app/models"
	"blogapi/app/services"

	"go.uber.org/zap"
)

// VoteController exposes casting a vote and reading the caller's vote.
type VoteController struct {
	voteService *services.VoteService
	logger      *zap.Logger
}

func NewVoteController(votes *services.VoteService, logger *zap.Logger) *VoteController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteController{voteService: votes, logger: logger}
}

// Vote applies an upvote or downvote. Repeating the current vote retracts it.
func (vc *VoteController) Vote(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, vc.logger, err)
		return
	}
	cast, err := models.ParseVoteType(req.VoteType)
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}

	result, err := vc.voteService.ApplyVote(r.Context(), user.ID, postID, cast)
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

// Status reports the caller's current vote on a post.
func (vc *VoteController) Status(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}

	state, err := vc.voteService.VoteStatus(r.Context(), user.ID, postID)
	if err != nil {
		sendError(w, r, vc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, voteStatusResponse{VoteType: state})
}
