package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/impact-portal/internal/authflow"
	"github.com/terra-clan/impact-portal/internal/feed"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/leaderboard"
	"github.com/terra-clan/impact-portal/internal/storage"
	"github.com/terra-clan/impact-portal/pkg/client"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps domain errors onto HTTP answers; action names what
// failed for the generic message
func respondServiceError(w http.ResponseWriter, err error, action string) {
	var apiErr *client.APIError
	var blocking *authflow.BlockingError

	switch {
	case errors.Is(err, identity.ErrNoSession), errors.Is(err, client.ErrMissingToken):
		respondError(w, http.StatusUnauthorized, "unauthorized", identity.ErrNoSession.Error())
	case errors.Is(err, feed.ErrPostNotFound):
		respondError(w, http.StatusNotFound, "not_found", "post not found")
	case errors.Is(err, storage.ErrReactionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "reaction not found")
	case errors.Is(err, feed.ErrInvalidKind),
		errors.Is(err, leaderboard.ErrInvalidTimeframe),
		errors.Is(err, leaderboard.ErrInvalidView),
		errors.Is(err, authflow.ErrUnknownModal):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &blocking):
		respondError(w, http.StatusBadRequest, "rejected", blocking.Message)
	case errors.As(err, &apiErr):
		slog.Warn("backend rejected request", "action", action, "status", apiErr.StatusCode, "error", apiErr.Message)
		respondError(w, http.StatusBadGateway, "backend_error", apiErr.Error())
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// saveSession writes the session cookie; it must run before the body is written
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *identity.Session) bool {
	if err := s.sessions.Save(w, r, sess); err != nil {
		slog.Error("failed to save session", "error", err, "viewer", sess.ViewerKey())
		respondError(w, http.StatusInternalServerError, "session_error", "failed to save session")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results, ok := s.health.CheckAll(r.Context())

	status, state := http.StatusOK, "ready"
	if !ok {
		status, state = http.StatusServiceUnavailable, "not_ready"
		slog.Warn("readiness check failed", "checks", len(results))
	}

	respondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
