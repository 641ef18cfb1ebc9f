package controllers

import (
	"net/http"

	"blogapi/app/services"

	"go.uber.org/zap"
)

// AuthController handles registration, login and user profiles.
type AuthController struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewAuthController(users *services.UserService, logger *zap.Logger) *AuthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthController{userService: users, logger: logger}
}

// Register creates an account and returns a token for it.
func (ac *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	session, err := ac.userService.Register(r.Context(), services.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, newTokenResponse(session))
}

// Login exchanges a username and password for a token.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	session, err := ac.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, newTokenResponse(session))
}

// Me returns the authenticated user.
func (ac *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, newUserResponse(user, true))
}

// ShowUser returns a public profile.
func (ac *AuthController) ShowUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	user, err := ac.userService.GetUser(r.Context(), id)
	if err != nil {
		sendError(w, r, ac.logger, err)
		return
	}
	viewer, _ := currentUser(r)
	sendJSON(w, http.StatusOK, newUserResponse(user, viewer != nil && viewer.ID == user.ID))
}
