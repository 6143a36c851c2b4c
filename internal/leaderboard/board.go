// Package leaderboard ranks participants and reports impact statistics.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"

	"github.com/terra-clan/impact-portal/internal/models"
)

var (
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidView      = errors.New("invalid impact view")
)

// Timeframes
const (
	Week  = "week"
	Month = "month"
	Year  = "year"
	All   = "all"

	DefaultTimeframe = Month
)

// Impact views
const (
	ViewGlobal   = "global"
	ViewNational = "national"
	ViewPersonal = "personal"

	DefaultView = ViewGlobal
)

// Source supplies the raw leaderboard and impact data
type Source interface {
	Leaders(timeframe string) []models.LeaderboardEntry
	ImpactStats(view string) (models.ImpactStats, bool)
	RecentImpact() []models.ImpactItem
}

// Board ranks entries from a source
type Board struct {
	source Source
}

// NewBoard creates a board
func NewBoard(source Source) *Board {
	return &Board{source: source}
}

// Rank returns the ranking of a timeframe; "" means the default timeframe.
// Entries are ordered by points, highest first, and ranked from 1.
func (b *Board) Rank(timeframe string) (*models.LeaderboardResponse, error) {
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	switch timeframe {
	case Week, Month, Year, All:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}

	entries := b.source.Leaders(timeframe)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return &models.LeaderboardResponse{
		Timeframe: timeframe,
		Entries:   entries,
		Total:     len(entries),
	}, nil
}

// Impact returns the stats of a view and the recent impact list
func (b *Board) Impact(view string) (*models.ImpactResponse, error) {
	if view == "" {
		view = DefaultView
	}
	switch view {
	case ViewGlobal, ViewNational, ViewPersonal:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}

	stats, _ := b.source.ImpactStats(view)
	recent := b.source.RecentImpact()
	if recent == nil {
		recent = []models.ImpactItem{}
	}

	return &models.ImpactResponse{
		View:   view,
		Stats:  stats,
		Recent: recent,
	}, nil
}
