package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/impact-portal/internal/authflow"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/pkg/client"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type modalRequest struct {
	Action string `json:"action" validate:"required,oneof=open close toggle"`
	Modal  string `json:"modal"`
}

// viewerResponse describes who is looking at the portal
type viewerResponse struct {
	Authenticated bool       `json:"authenticated"`
	ViewerID      string     `json:"viewer_id"`
	UserID        string     `json:"user_id,omitempty"`
	Username      string     `json:"username,omitempty"`
	SignedInAt    *time.Time `json:"signed_in_at,omitempty"`
}

func viewerOf(sess *identity.Session) viewerResponse {
	resp := viewerResponse{
		Authenticated: sess.Authenticated(),
		ViewerID:      sess.ViewerID,
	}
	if resp.Authenticated {
		resp.UserID = sess.UserID()
		resp.Username = sess.Claims.Username
		if !sess.CreatedAt.IsZero() {
			at := sess.CreatedAt
			resp.SignedInAt = &at
		}
	}
	return resp
}

// flowOf rebuilds the modal state kept in the session. The password prefill
// is never stored.
func flowOf(sess *identity.Session) authflow.Flow {
	return authflow.Flow{
		Modal:      authflow.Modal(sess.UI.Modal),
		LoginEmail: sess.UI.LoginEmail,
	}
}

func storeFlow(sess *identity.Session, f authflow.Flow) {
	sess.UI.Modal = string(f.Modal)
	sess.UI.LoginEmail = f.LoginEmail
}

// --- Auth handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.Validate(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sess := SessionFromContext(r.Context())
	flow := flowOf(sess)
	flow.Modal = authflow.ModalCreateAccount

	user, err := s.auth.SubmitCreateAccount(r.Context(), &flow, client.CreateAccountRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(w, err, "create account")
		return
	}

	storeFlow(sess, flow)
	if !s.saveSession(w, r, sess) {
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"modal": flow,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.Validate(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sess := SessionFromContext(r.Context())
	flow := flowOf(sess)

	var token string
	err := s.auth.SubmitLogin(r.Context(), &flow, client.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}, func(t string) error {
		token = t
		return nil
	})
	if err != nil {
		var blocking *authflow.BlockingError
		if errors.As(err, &blocking) {
			respondError(w, http.StatusUnauthorized, "login_failed", blocking.Message)
			return
		}
		respondServiceError(w, err, "sign in")
		return
	}

	storeFlow(sess, flow)
	if err := s.sessions.Begin(w, r, sess, token); err != nil {
		slog.Error("failed to begin session", "error", err)
		respondError(w, http.StatusInternalServerError, "session_error", "failed to save session")
		return
	}

	slog.Info("viewer signed in", "user_id", sess.UserID(), "viewer_id", sess.ViewerID)
	respondJSON(w, http.StatusOK, viewerOf(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	userID := sess.UserID()

	if err := s.sessions.End(w, r, sess); err != nil {
		slog.Error("failed to end session", "error", err)
		respondError(w, http.StatusInternalServerError, "session_error", "failed to save session")
		return
	}

	if userID != "" {
		slog.Info("viewer signed out", "user_id", userID, "viewer_id", sess.ViewerID)
	}
	respondJSON(w, http.StatusOK, viewerOf(sess))
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, viewerOf(SessionFromContext(r.Context())))
}

// --- Modal handlers ---

func (s *Server) handleGetModal(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, flowOf(SessionFromContext(r.Context())))
}

func (s *Server) handleUpdateModal(w http.ResponseWriter, r *http.Request) {
	var req modalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.Validate(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sess := SessionFromContext(r.Context())
	flow := flowOf(sess)

	switch req.Action {
	case "open":
		m, err := authflow.ParseModal(req.Modal)
		if err == nil {
			err = flow.Open(m)
		}
		if err != nil {
			respondServiceError(w, err, "open modal")
			return
		}
	case "close":
		flow.Close()
	case "toggle":
		flow.Toggle()
	}

	storeFlow(sess, flow)
	if !s.saveSession(w, r, sess) {
		return
	}
	respondJSON(w, http.StatusOK, flow)
}
