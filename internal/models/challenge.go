package models

import (
	"github.com/terra-clan/impact-portal/internal/geo"
)

// CreatorRef identifies the user who proposed a challenge
type CreatorRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// Challenge is a community-proposed initiative, optionally geolocated
type Challenge struct {
	ID          ID           `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	CreatedBy   *CreatorRef  `json:"createdBy,omitempty"`
	Location    geo.Location `json:"location"`
	Category    string       `json:"category,omitempty"`
	Upvotes     int          `json:"upvotes,omitempty"`
	Points      int          `json:"points,omitempty"`
	Solutions   []Solution   `json:"solutions,omitempty"`
	Status      string       `json:"status,omitempty"`
	Date        string       `json:"date,omitempty"`
}

// CreatorID returns the creator id or an empty string
func (c *Challenge) CreatorID() string {
	if c.CreatedBy == nil {
		return ""
	}
	return c.CreatedBy.ID.String()
}

// Solution is a user-submitted response to a challenge
type Solution struct {
	ID          ID          `json:"id"`
	Title       string      `json:"title"`
	Author      *CreatorRef `json:"author,omitempty"`
	ChallengeID ID          `json:"challengeId,omitempty"`
	Image       string      `json:"image,omitempty"`
	Points      int         `json:"points"`
	CreatedAt   string      `json:"createdAt,omitempty"`
}

// Challenge categories offered when creating a challenge
var ChallengeCategories = []string{
	"environment",
	"community",
	"conservation",
	"transport",
	"education",
	"health",
	"technology",
	"arts",
}

// IsChallengeCategory reports whether c is one of ChallengeCategories
func IsChallengeCategory(c string) bool {
	for _, known := range ChallengeCategories {
		if known == c {
			return true
		}
	}
	return false
}
