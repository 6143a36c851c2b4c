package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PositionErrorCode mirrors the failure codes a device geolocation prompt reports
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

// PositionError is a geolocation failure reported by the device
type PositionError struct {
	Code PositionErrorCode
}

func (e *PositionError) Error() string {
	return PositionMessage(e.Code)
}

// PositionMessage maps a geolocation failure to the alert shown to the user
func PositionMessage(code PositionErrorCode) string {
	msg := "Unable to retrieve your location. "
	switch code {
	case PermissionDenied:
		msg += "Location access denied by user."
	case PositionUnavailable:
		msg += "Location information unavailable."
	case Timeout:
		msg += "Location request timed out."
	default:
		msg += "Unknown error occurred."
	}
	return msg + " Please enter manually."
}

// ReverseGeocoder resolves coordinates into address parts
type ReverseGeocoder struct {
	endpoint   string
	language   string
	httpClient *http.Client
}

// NewReverseGeocoder creates a geocoder for a BigDataCloud compatible endpoint
func NewReverseGeocoder(endpoint string, timeout time.Duration) *ReverseGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReverseGeocoder{
		endpoint:   endpoint,
		language:   "en",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Reverse looks up the address for a point
func (g *ReverseGeocoder) Reverse(ctx context.Context, p Point) (*ReverseResult, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	q.Set("localityLanguage", g.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reverse geocoding returned HTTP %d", resp.StatusCode)
	}

	var result ReverseResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}
