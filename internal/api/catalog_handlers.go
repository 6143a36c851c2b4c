package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/internal/models"
)

// Pin sources
const (
	sourceCatalog = "catalog"
	sourceMine    = "mine"
)

// --- Map handlers ---

func (s *Server) handleListPins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := mappin.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	switch filter.Category {
	case "", mappin.CategoryAll, mappin.CategoryChallenge, mappin.CategorySolution:
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "category must be one of all, challenge, solution")
		return
	}

	var pins []models.Pin
	switch source := q.Get("source"); source {
	case "", sourceCatalog:
		pins = s.catalog.ListPins()
	case sourceMine:
		sess := SessionFromContext(r.Context())
		if !sess.Authenticated() {
			respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to see your own challenges")
			return
		}
		challenges, err := s.gateway.GetUserChallenges(r.Context(), sess.Token(), sess.UserID())
		if err != nil {
			slog.Warn("failed to fetch viewer challenges", "user_id", sess.UserID(), "error", err)
			challenges = nil
		}
		pins = mappin.FromChallenges(challenges)
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "source must be catalog or mine")
		return
	}

	projected := mappin.Project(pins, filter)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pins":  projected,
		"total": len(projected),
	})
}

func (s *Server) handleMapEmbed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var selected *models.Pin
	if id := q.Get("pin"); id != "" {
		pin, ok := s.catalog.GetPin(id)
		if !ok {
			respondError(w, http.StatusNotFound, "not_found", "pin not found")
			return
		}
		selected = &pin
	}

	zoom := 0
	if zoomStr := q.Get("zoom"); zoomStr != "" {
		z, err := strconv.Atoi(zoomStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "zoom must be an integer")
			return
		}
		zoom = z
	}

	respondJSON(w, http.StatusOK, s.embeds.Build(selected, q.Get("style"), zoom))
}

func (s *Server) handleMapMarkers(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	challenges, err := s.gateway.GetUserChallenges(r.Context(), sess.Token(), sess.UserID())
	if err != nil {
		slog.Warn("failed to fetch challenges for markers", "user_id", sess.UserID(), "error", err)
		challenges = nil
	}

	respondJSON(w, http.StatusOK, mappin.NewTileView(challenges))
}

// --- Leaderboard handlers ---

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.board.Rank(r.URL.Query().Get("timeframe"))
	if err != nil {
		respondServiceError(w, err, "rank leaderboard")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	impact, err := s.board.Impact(r.URL.Query().Get("view"))
	if err != nil {
		respondServiceError(w, err, "load impact")
		return
	}
	respondJSON(w, http.StatusOK, impact)
}

// --- Geocoding handlers ---

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "lat and lon must be numbers")
		return
	}
	p := geo.Point{Latitude: lat, Longitude: lon}
	if !p.InRange() {
		respondError(w, http.StatusBadRequest, "validation_error", "coordinates out of range")
		return
	}

	accuracy := 0.0
	if accStr := q.Get("accuracy"); accStr != "" {
		if a, err := strconv.ParseFloat(accStr, 64); err == nil && a >= 0 {
			accuracy = a
		}
	}

	var result *geo.ReverseResult
	if s.geocoder != nil {
		res, err := s.geocoder.Reverse(r.Context(), p)
		if err != nil {
			slog.Warn("reverse geocoding failed, using coordinates", "lat", lat, "lon", lon, "error", err)
		} else {
			result = res
		}
	}

	respondJSON(w, http.StatusOK, geo.AddressFor(p, accuracy, result))
}
