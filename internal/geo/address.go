package geo

import (
	"fmt"
	"strings"
)

// ReverseResult is the subset of a reverse-geocoding response used to build
// human readable addresses
type ReverseResult struct {
	City          string `json:"city"`
	Locality      string `json:"locality"`
	CountryName   string `json:"countryName"`
	StreetNumber  string `json:"streetNumber"`
	StreetName    string `json:"streetName"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Postcode      string `json:"postcode"`
}

// BasicLocation returns "City, Country" with placeholders for missing parts
func BasicLocation(r ReverseResult) string {
	city := firstNonEmpty(r.City, r.Locality, "Unknown City")
	country := firstNonEmpty(r.CountryName, "Unknown Country")
	return city + ", " + country
}

// DetailedAddress joins street, neighbourhood (or suburb), city (or locality)
// and country, skipping whatever is missing
func DetailedAddress(r ReverseResult) string {
	var parts []string

	street := strings.TrimSpace(strings.TrimSpace(r.StreetNumber) + " " + r.StreetName)
	if street != "" {
		parts = append(parts, street)
	}
	if area := firstNonEmpty(r.Neighbourhood, r.Suburb); area != "" {
		parts = append(parts, area)
	}
	if city := firstNonEmpty(r.City, r.Locality); city != "" {
		parts = append(parts, city)
	}
	if r.CountryName != "" {
		parts = append(parts, r.CountryName)
	}

	return strings.Join(parts, ", ")
}

// CoordinateFallback is the location text used when reverse geocoding fails
func CoordinateFallback(p Point) string {
	return fmt.Sprintf("%.4f, %.4f", p.Latitude, p.Longitude)
}

// CoordinateDetail is the high precision coordinate label
func CoordinateDetail(p Point) string {
	return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
}

// Address is the outcome of resolving a device position into form fields
type Address struct {
	Location    string         `json:"location"`
	Detailed    string         `json:"detailed_address"`
	Coordinates string         `json:"coordinates"`
	Accuracy    float64        `json:"accuracy,omitempty"`
	Details     *ReverseResult `json:"details,omitempty"`
}

// AddressFor builds form fields from a reverse-geocoding result. A nil result
// means the lookup failed and the coordinates are used instead.
func AddressFor(p Point, accuracy float64, r *ReverseResult) Address {
	addr := Address{
		Coordinates: CoordinateDetail(p),
		Accuracy:    accuracy,
	}

	if r == nil {
		addr.Location = CoordinateFallback(p)
		addr.Detailed = addr.Location
		return addr
	}

	addr.Location = BasicLocation(*r)
	addr.Detailed = DetailedAddress(*r)
	addr.Details = r
	return addr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
