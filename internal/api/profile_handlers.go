package api

import (
	"net/http"

	"github.com/terra-clan/impact-portal/internal/models"
)

// --- Profile handlers (signed-in viewers only) ---

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	page, err := s.profiles.Load(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "load profile")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var form models.EditForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if err := s.validator.Validate(form); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	page, err := s.profiles.SaveEdit(r.Context(), SessionFromContext(r.Context()), form)
	if err != nil {
		respondServiceError(w, err, "save profile")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleDiscardProfileEdit(w http.ResponseWriter, r *http.Request) {
	s.profiles.DiscardEdit(SessionFromContext(r.Context()))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "profile edits discarded",
	})
}
