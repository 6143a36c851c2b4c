package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

var latLonPattern = regexp.MustCompile(`(?i)Lat:\s*([-\d.]+)\s*,\s*Lon:\s*([-\d.]+)`)

// Point is a decimal-degree coordinate
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InRange reports whether the point lies within [-90,90] x [-180,180].
// ParseLocation does not reject out-of-range values; callers that care check here.
func (p Point) InRange() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// ParseLocation extracts a point from text of the form "Lat: <float>, Lon: <float>".
// The second return value is false when the text does not match.
func ParseLocation(s string) (Point, bool) {
	m := latLonPattern.FindStringSubmatch(s)
	if m == nil {
		return Point{}, false
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Point{}, false
	}

	return Point{Latitude: lat, Longitude: lon}, true
}

// FormatLocation renders a point in the form ParseLocation accepts
func FormatLocation(p Point) string {
	return fmt.Sprintf("Lat: %s, Lon: %s",
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
	)
}

// Location is a coordinate decided once at ingestion: either Resolved with a
// point, or Unresolved. Raw keeps the original text when there was one.
type Location struct {
	Resolved bool
	Point    Point
	Raw      string
}

// Resolve builds a Location from raw text
func Resolve(raw string) Location {
	if p, ok := ParseLocation(raw); ok {
		return Location{Resolved: true, Point: p, Raw: raw}
	}
	return Location{Raw: raw}
}

// At builds a resolved Location from a point
func At(p Point) Location {
	return Location{Resolved: true, Point: p}
}

// Coordinates returns the point and whether it is usable for map rendering
func (l Location) Coordinates() (Point, bool) {
	return l.Point, l.Resolved
}

// UnmarshalJSON accepts a "Lat: x, Lon: y" string, a {latitude, longitude}
// object or null. Unparsable strings become Unresolved rather than an error.
func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = Location{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to decode location string: %w", err)
		}
		*l = Resolve(raw)
		return nil
	case '{':
		var obj struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("failed to decode location object: %w", err)
		}
		if obj.Latitude != nil && obj.Longitude != nil {
			*l = At(Point{Latitude: *obj.Latitude, Longitude: *obj.Longitude})
		}
		return nil
	default:
		return nil
	}
}

// MarshalJSON emits the structured point when resolved and null otherwise
func (l Location) MarshalJSON() ([]byte, error) {
	if !l.Resolved {
		return []byte("null"), nil
	}
	return json.Marshal(l.Point)
}
