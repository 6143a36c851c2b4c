package models

// PinType separates challenges from solutions on the map
type PinType string

const (
	PinChallenge PinType = "challenge"
	PinSolution  PinType = "solution"
)

// PinStatus is used for colour coding only
type PinStatus string

const (
	PinActive     PinStatus = "active"
	PinInProgress PinStatus = "in-progress"
	PinCompleted  PinStatus = "completed"
)

// Pin is a map-rendered point derived from a challenge or solution
type Pin struct {
	ID              string    `json:"id" yaml:"id"`
	Type            PinType   `json:"type" yaml:"type"`
	Title           string    `json:"title" yaml:"title"`
	Location        string    `json:"location" yaml:"location"`
	DetailedAddress string    `json:"detailedAddress" yaml:"detailed_address"`
	Category        string    `json:"category" yaml:"category"`
	Participants    int       `json:"participants" yaml:"participants"`
	Lat             *float64  `json:"lat,omitempty" yaml:"lat"`
	Lng             *float64  `json:"lng,omitempty" yaml:"lng"`
	Status          PinStatus `json:"status" yaml:"status"`
	Color           string    `json:"color,omitempty" yaml:"-"`
}

// HasCoordinates reports whether the pin can be placed on a map
func (p *Pin) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// Marker is a point on the tile map with a popup
type Marker struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Title     string  `json:"title"`
	UserID    string  `json:"userId"`
	Popup     string  `json:"popup"`
}
