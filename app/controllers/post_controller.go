package controllers

import (
	"net/http"
	"strconv"

	"blogapi/app/apperrors"
	"blogapi/app/models"
	"blogapi/app/services"

	"go.uber.org/zap"
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService    *services.PostService
	voteService    *services.VoteService
	commentService *services.CommentService
	logger         *zap.Logger
}

// NewPostController creates a new PostController
func NewPostController(posts *services.PostService, votes *services.VoteService, comments *services.CommentService, logger *zap.Logger) *PostController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostController{
		postService:    posts,
		voteService:    votes,
		commentService: comments,
		logger:         logger,
	}
}

// Index handles listing posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := pageParams(r)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	q := r.URL.Query()
	result, err := pc.postService.ListPosts(r.Context(), services.ListOptions{
		Page:    page,
		PerPage: perPage,
		SortBy:  q.Get("sort_by"),
		Order:   q.Get("order"),
	})
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}

	resp := postListResponse{Posts: make([]postSummary, 0, len(result.Posts)), PageInfo: result.PageInfo}
	for _, post := range result.Posts {
		resp.Posts = append(resp.Posts, newPostSummary(post))
	}
	sendJSON(w, http.StatusOK, resp)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	post, err := pc.postService.GetPost(r.Context(), id)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	pc.sendPost(w, r, http.StatusOK, post)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	post := &models.Post{Title: req.Title, Body: req.Body, Author: req.Author}
	if err := pc.postService.CreatePost(r.Context(), user, post); err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	w.Header().Set("Location", "/api/posts/"+strconv.Itoa(post.ID))
	sendJSON(w, http.StatusCreated, newPostResponse(post, services.Tally{}, 0))
}

// Update handles editing an existing post
func (pc *PostController) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}

	var req updatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	if req.Title == nil && req.Body == nil {
		sendError(w, r, pc.logger, apperrors.Validation("nothing to update", map[string]string{
			"title": "title or body is required",
		}))
		return
	}

	post, err := pc.postService.UpdatePost(r.Context(), user.ID, id, services.PostUpdate{Title: req.Title, Body: req.Body})
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	pc.sendPost(w, r, http.StatusOK, post)
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	if err := pc.postService.DeletePost(r.Context(), user.ID, id); err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (pc *PostController) sendPost(w http.ResponseWriter, r *http.Request, status int, post *models.Post) {
	tally, err := pc.voteService.Tally(r.Context(), post.ID)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	comments, err := pc.commentService.CountComments(r.Context(), post.ID)
	if err != nil {
		sendError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, status, newPostResponse(post, tally, comments))
}
