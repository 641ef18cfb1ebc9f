package controllers

import (
	"net/http"

	"blogapi/app/services"

	"go.uber.org/zap"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
	logger         *zap.Logger
}

// NewCommentController creates a new CommentController
func NewCommentController(comments *services.CommentService, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentController{commentService: comments, logger: logger}
}

// Index lists a post's comments, newest first.
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}
	page, perPage, err := pageParams(r)
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}

	result, err := cc.commentService.ListComments(r.Context(), postID, page, perPage)
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}
	resp := commentListResponse{Comments: make([]commentResponse, 0, len(result.Comments)), PageInfo: result.PageInfo}
	for _, c := range result.Comments {
		resp.Comments = append(resp.Comments, newCommentResponse(c))
	}
	sendJSON(w, http.StatusOK, resp)
}

// Create adds a comment to a post
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}

	var req createCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, cc.logger, err)
		return
	}
	comment, err := cc.commentService.CreateComment(r.Context(), user, postID, req.Content)
	if err != nil {
		sendError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, newCommentResponse(comment))
}
