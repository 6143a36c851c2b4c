package models

// Trend is the direction of a leaderboard entry since the last period
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
)

// LeaderboardEntry is one ranked participant
type LeaderboardEntry struct {
	Rank       int    `json:"rank" yaml:"rank"`
	Name       string `json:"name" yaml:"name"`
	Avatar     string `json:"avatar" yaml:"avatar"`
	Points     int    `json:"points" yaml:"points"`
	Challenges int    `json:"challenges" yaml:"challenges"`
	Solutions  int    `json:"solutions" yaml:"solutions"`
	Badge      string `json:"badge" yaml:"badge"`
	Trend      Trend  `json:"trend" yaml:"trend"`
}

// LeaderboardResponse is a ranking for one timeframe
type LeaderboardResponse struct {
	Timeframe string             `json:"timeframe"`
	Entries   []LeaderboardEntry `json:"entries"`
	Total     int                `json:"total"`
}

// ImpactStats are the headline numbers of one impact view
type ImpactStats struct {
	Challenges   int `json:"challenges" yaml:"challenges"`
	Participants int `json:"participants,omitempty" yaml:"participants"`
	Solutions    int `json:"solutions" yaml:"solutions"`
	Countries    int `json:"countries,omitempty" yaml:"countries"`
	Rank         int `json:"rank,omitempty" yaml:"rank"`
	Impact       int `json:"impact,omitempty" yaml:"impact"`
}

// ImpactItem is a recent completed initiative shown under the impact map
type ImpactItem struct {
	Title           string `json:"title" yaml:"title"`
	Location        string `json:"location" yaml:"location"`
	DetailedAddress string `json:"detailedAddress" yaml:"detailed_address"`
	Impact          string `json:"impact" yaml:"impact"`
	Participants    int    `json:"participants" yaml:"participants"`
	Date            string `json:"date" yaml:"date"`
	Coordinates     string `json:"coordinates" yaml:"coordinates"`
}

// ImpactResponse is the payload for one impact view
type ImpactResponse struct {
	View   string       `json:"view"`
	Stats  ImpactStats  `json:"stats"`
	Recent []ImpactItem `json:"recent"`
}
