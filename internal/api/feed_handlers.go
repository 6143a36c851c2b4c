package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/impact-portal/internal/feed"
	"github.com/terra-clan/impact-portal/internal/models"
)

// --- Feed handlers ---

func (s *Server) handleListFeed(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	posts, err := s.feed.List(r.Context(), sess.ViewerKey(), sess.UI.Expanded)
	if err != nil {
		respondServiceError(w, err, "list feed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts":    posts,
		"total":    len(posts),
		"expanded": sess.UI.Expanded,
	})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	post, err := s.feed.Post(r.Context(), sess.ViewerKey(), chi.URLParam(r, "id"), sess.UI.Expanded)
	if err != nil {
		respondServiceError(w, err, "get post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (s *Server) handleToggleReaction(kind models.ReactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		id := chi.URLParam(r, "id")

		event, err := s.feed.Toggle(r.Context(), sess.ViewerKey(), id, kind)
		if err != nil {
			respondServiceError(w, err, "toggle "+string(kind))
			return
		}
		if s.metrics != nil {
			s.metrics.ObserveToggle(string(kind), event.Active)
		}

		// Anonymous viewers keep their overlay only if the viewer id sticks
		if !s.saveSession(w, r, sess) {
			return
		}
		respondJSON(w, http.StatusOK, event)
	}
}

func (s *Server) handleConfirmReaction(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	kind := models.ReactionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondServiceError(w, feed.ErrInvalidKind, "confirm reaction")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.feed.Confirm(r.Context(), sess.ViewerKey(), id, kind); err != nil {
		respondServiceError(w, err, "confirm reaction")
		return
	}

	post, err := s.feed.Post(r.Context(), sess.ViewerKey(), id, sess.UI.Expanded)
	if err != nil {
		respondServiceError(w, err, "get post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (s *Server) handleExpandPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.catalog.GetPost(id); !ok {
		respondServiceError(w, feed.ErrPostNotFound, "expand post")
		return
	}

	sess := SessionFromContext(r.Context())
	sess.UI.Expanded = id
	if !s.saveSession(w, r, sess) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"expanded": id})
}

func (s *Server) handleCollapsePost(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	sess.UI.Expanded = ""
	if !s.saveSession(w, r, sess) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"expanded": ""})
}
