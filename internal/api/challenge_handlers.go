package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/pkg/client"
)

const maxChallengeUpload = 10 << 20

type challengeForm struct {
	Title           string `validate:"required,max=200"`
	Description     string `validate:"required,max=5000"`
	Location        string `validate:"required,max=500"`
	DetailedAddress string `validate:"max=500"`
	Category        string `validate:"required,challenge_category"`
}

// handleCreateChallenge forwards a multipart challenge proposal to the backend.
// Coordinates sent as latitude/longitude become the "Lat: x, Lon: y" location
// the map understands; a typed place name moves into the detailed address.
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChallengeUpload)
	if err := r.ParseMultipartForm(maxChallengeUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := challengeForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Description:     strings.TrimSpace(r.FormValue("description")),
		Location:        strings.TrimSpace(r.FormValue("location")),
		DetailedAddress: strings.TrimSpace(r.FormValue("detailedAddress")),
		Category:        strings.ToLower(strings.TrimSpace(r.FormValue("category"))),
	}

	if latStr, lonStr := r.FormValue("latitude"), r.FormValue("longitude"); latStr != "" || lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		p := geo.Point{Latitude: lat, Longitude: lon}
		if errLat != nil || errLon != nil || !p.InRange() {
			respondError(w, http.StatusBadRequest, "validation_error", "latitude and longitude must be valid coordinates")
			return
		}
		if _, ok := geo.ParseLocation(form.Location); !ok {
			form.DetailedAddress = mergeAddress(form.DetailedAddress, form.Location)
			form.Location = geo.FormatLocation(p)
		}
		if form.DetailedAddress == "" {
			form.DetailedAddress = geo.CoordinateDetail(p)
		}
	}

	if err := s.validator.Validate(form); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	req := client.CreateChallengeRequest{
		Title:           form.Title,
		Description:     form.Description,
		Location:        form.Location,
		DetailedAddress: form.DetailedAddress,
		Category:        form.Category,
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		req.Image = file
		req.ImageName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid image upload")
		return
	}

	sess := SessionFromContext(r.Context())
	challenge, err := s.gateway.CreateChallenge(r.Context(), sess.Token(), req)
	if err != nil {
		respondServiceError(w, err, "create challenge")
		return
	}

	slog.Info("challenge created",
		"challenge_id", challenge.ID.String(),
		"user_id", sess.UserID(),
		"category", form.Category,
	)
	respondJSON(w, http.StatusCreated, challenge)
}

// mergeAddress keeps a place name that would otherwise be replaced by coordinates
func mergeAddress(detailed, place string) string {
	switch {
	case place == "":
		return detailed
	case detailed == "":
		return place
	case strings.Contains(strings.ToLower(detailed), strings.ToLower(place)):
		return detailed
	default:
		return detailed + ", " + place
	}
}
