package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"blogapi/app/apperrors"
	"blogapi/app/auth"
	"blogapi/app/middleware"
	"blogapi/app/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; post bodies are the largest input.
const maxBodyBytes = 1 << 20

var validate = models.NewValidator()

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// sendError writes err as {"error": ...} with the status its kind maps to.
// Server-side failures are logged and reported generically.
func sendError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	sendJSON(w, status, errorResponse{
		Error:  apperrors.PublicMessage(err),
		Fields: apperrors.FieldErrors(err),
	})
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.Validation("request body is required", nil)
		case errors.As(err, &tooLarge):
			return apperrors.Validation("request body too large", nil)
		default:
			return apperrors.Validation("invalid JSON: "+err.Error(), nil)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return models.ValidationFailure("invalid request", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid "+name, map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means zero so
// the service default applies.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("invalid "+name, map[string]string{name: "must be an integer"})
	}
	return n, nil
}

func pageParams(r *http.Request) (page, perPage int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if perPage, err = queryInt(r, "per_page"); err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

// currentUser returns the user attached by the auth middleware.
func currentUser(r *http.Request) (*models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return user, nil
}
