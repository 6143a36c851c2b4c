package mappin

import (
	"net/url"
	"strconv"

	"github.com/terra-clan/impact-portal/internal/models"
)

// Zoom bounds of the embedded map
const (
	MinZoom     = 1
	MaxZoom     = 20
	DefaultZoom = 2
)

// Map styles offered to the viewer
const (
	StyleStreet    = "street"
	StyleSatellite = "satellite"
	StyleTerrain   = "terrain"
)

// DefaultEmbedURL is the place endpoint of the maps embed API
const DefaultEmbedURL = "https://www.google.com/maps/embed/v1/place"

// Embed describes an embedded map frame
type Embed struct {
	Query   string `json:"query"`
	MapType string `json:"mapType"`
	Zoom    int    `json:"zoom"`
	URL     string `json:"url"`
}

// EmbedBuilder builds embed URLs for a fixed key and endpoint
type EmbedBuilder struct {
	endpoint string
	apiKey   string
}

// NewEmbedBuilder creates an embed builder; an empty endpoint uses DefaultEmbedURL
func NewEmbedBuilder(endpoint, apiKey string) *EmbedBuilder {
	if endpoint == "" {
		endpoint = DefaultEmbedURL
	}
	return &EmbedBuilder{endpoint: endpoint, apiKey: apiKey}
}

// Build returns the embed for the selected pin, or the whole world when none
// is selected
func (b *EmbedBuilder) Build(selected *models.Pin, style string, zoom int) Embed {
	query := "World"
	if selected != nil && selected.DetailedAddress != "" {
		query = selected.DetailedAddress
	}

	e := Embed{
		Query:   query,
		MapType: MapType(style),
		Zoom:    ClampZoom(zoom),
	}

	v := url.Values{}
	v.Set("key", b.apiKey)
	v.Set("q", e.Query)
	v.Set("maptype", e.MapType)
	v.Set("zoom", strconv.Itoa(e.Zoom))
	e.URL = b.endpoint + "?" + v.Encode()

	return e
}

// MapType maps a viewer style onto an embed map type. The embed API has no
// terrain type, so terrain and street both render as roadmap.
func MapType(style string) string {
	if style == StyleSatellite {
		return "satellite"
	}
	return "roadmap"
}

// ClampZoom bounds zoom to the supported range; zero means the default
func ClampZoom(zoom int) int {
	if zoom == 0 {
		return DefaultZoom
	}
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// ZoomIn returns zoom+1 capped at MaxZoom
func ZoomIn(zoom int) int {
	return ClampZoom(zoom + 1)
}

// ZoomOut returns zoom-1 floored at MinZoom
func ZoomOut(zoom int) int {
	if zoom <= MinZoom {
		return MinZoom
	}
	return zoom - 1
}
