// Package mappin turns challenge and solution records into map pins and
// builds the embed and tile views that render them.
package mappin

import (
	"strings"

	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/models"
)

// Category filter values
const (
	CategoryAll       = "all"
	CategoryChallenge = "challenge"
	CategorySolution  = "solution"
)

// Pin colours
const (
	ColorEmerald = "emerald"
	ColorYellow  = "yellow"
	ColorBlue    = "blue"
	ColorPurple  = "purple"
)

// Filter selects pins by type and free text
type Filter struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

// Project returns the pins that can be drawn and match f, in input order.
// Pins without coordinates are dropped. The input is not modified.
func Project(pins []models.Pin, f Filter) []models.Pin {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Pin, 0, len(pins))

	for _, p := range pins {
		if !p.HasCoordinates() {
			continue
		}
		if !matchesCategory(p, f.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Location), search) {
			continue
		}
		p.Color = Color(p)
		out = append(out, p)
	}

	return out
}

func matchesCategory(p models.Pin, category string) bool {
	switch category {
	case "", CategoryAll:
		return true
	default:
		return string(p.Type) == category
	}
}

// Color returns the marker colour of a pin
func Color(p models.Pin) string {
	if p.Type == models.PinSolution {
		return ColorPurple
	}
	switch p.Status {
	case models.PinInProgress:
		return ColorYellow
	case models.PinCompleted:
		return ColorBlue
	default:
		return ColorEmerald
	}
}

// FromChallenges converts challenge records into pins. Challenges whose
// location did not resolve are skipped.
func FromChallenges(challenges []models.Challenge) []models.Pin {
	pins := make([]models.Pin, 0, len(challenges))
	for _, c := range challenges {
		pt, ok := c.Location.Coordinates()
		if !ok {
			continue
		}
		lat, lng := pt.Latitude, pt.Longitude

		text := c.Location.Raw
		if text == "" {
			text = geo.FormatLocation(pt)
		}

		pins = append(pins, models.Pin{
			ID:              c.ID.String(),
			Type:            models.PinChallenge,
			Title:           c.Title,
			Location:        text,
			DetailedAddress: geo.CoordinateDetail(pt),
			Category:        c.Category,
			Participants:    len(c.Solutions),
			Lat:             &lat,
			Lng:             &lng,
			Status:          pinStatus(c.Status),
		})
	}
	return pins
}

func pinStatus(s string) models.PinStatus {
	switch models.PinStatus(strings.ToLower(s)) {
	case models.PinInProgress:
		return models.PinInProgress
	case models.PinCompleted:
		return models.PinCompleted
	default:
		return models.PinActive
	}
}
