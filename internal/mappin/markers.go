package mappin

import (
	"fmt"

	"github.com/terra-clan/impact-portal/internal/models"
)

// Tile map defaults
const (
	DefaultCenterLat = 9.145
	DefaultCenterLon = 40.4897
	DefaultTileZoom  = 6
	DefaultTileURL   = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// TileView is everything a tile map needs to draw the impact markers
type TileView struct {
	CenterLat float64         `json:"centerLat"`
	CenterLon float64         `json:"centerLon"`
	Zoom      int             `json:"zoom"`
	TileURL   string          `json:"tileUrl"`
	Markers   []models.Marker `json:"markers"`
}

// Markers returns one marker per challenge with a resolved location
func Markers(challenges []models.Challenge) []models.Marker {
	markers := make([]models.Marker, 0, len(challenges))
	for _, c := range challenges {
		pt, ok := c.Location.Coordinates()
		if !ok {
			continue
		}
		userID := c.CreatorID()
		markers = append(markers, models.Marker{
			ID:        c.ID.String(),
			Latitude:  pt.Latitude,
			Longitude: pt.Longitude,
			Title:     c.Title,
			UserID:    userID,
			Popup:     fmt.Sprintf("Contributed by user %s", userID),
		})
	}
	return markers
}

// NewTileView wraps markers with the default centre and zoom
func NewTileView(challenges []models.Challenge) TileView {
	return TileView{
		CenterLat: DefaultCenterLat,
		CenterLon: DefaultCenterLon,
		Zoom:      DefaultTileZoom,
		TileURL:   DefaultTileURL,
		Markers:   Markers(challenges),
	}
}
