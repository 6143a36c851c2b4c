package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/impact-portal/internal/models"
)

// Catalog file names inside the catalog directory
const (
	PinsFile        = "pins.yaml"
	FeedFile        = "feed.yaml"
	LeaderboardFile = "leaderboard.yaml"
	ImpactFile      = "impact.yaml"
)

// Loader holds the seed content served by the portal
type Loader struct {
	mu sync.RWMutex

	pins     []models.Pin
	posts    []models.Post
	postByID map[string]int

	leaders    []models.LeaderboardEntry
	timeframes map[string][]models.LeaderboardEntry

	impact map[string]models.ImpactStats
	recent []models.ImpactItem
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		postByID:   make(map[string]int),
		timeframes: make(map[string][]models.LeaderboardEntry),
		impact:     make(map[string]models.ImpactStats),
	}
}

// LoadFromDir loads every catalog file found in dir. A missing directory or
// file leaves that part of the catalog empty; a malformed file is an error.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Warn("catalog directory not found, serving empty catalog", "dir", dir)
		return nil
	}

	loaders := []struct {
		name string
		load func([]byte) error
	}{
		{PinsFile, l.loadPins},
		{FeedFile, l.loadFeed},
		{LeaderboardFile, l.loadLeaderboard},
		{ImpactFile, l.loadImpact},
	}

	for _, ld := range loaders {
		path := filepath.Join(dir, ld.name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("catalog file not found", "file", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", ld.name, err)
		}
		if err := ld.load(data); err != nil {
			return fmt.Errorf("failed to load %s: %w", ld.name, err)
		}
	}

	l.mu.RLock()
	slog.Info("catalog loaded",
		"pins", len(l.pins),
		"posts", len(l.posts),
		"leaders", len(l.leaders),
		"impact_views", len(l.impact),
	)
	l.mu.RUnlock()

	return nil
}

func (l *Loader) loadPins(data []byte) error {
	var f pinsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range f.Pins {
		if p.ID == "" {
			return fmt.Errorf("pin %d: id is required", i)
		}
		if p.Type != models.PinChallenge && p.Type != models.PinSolution {
			return fmt.Errorf("pin %s: unknown type %q", p.ID, p.Type)
		}
	}

	l.mu.Lock()
	l.pins = f.Pins
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadFeed(data []byte) error {
	var f feedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	index := make(map[string]int, len(f.Posts))
	for i, p := range f.Posts {
		if p.ID == "" {
			return fmt.Errorf("post %d: id is required", i)
		}
		if _, dup := index[p.ID]; dup {
			return fmt.Errorf("duplicate post id %s", p.ID)
		}
		index[p.ID] = i
	}

	l.mu.Lock()
	l.posts = f.Posts
	l.postByID = index
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadLeaderboard(data []byte) error {
	var f leaderboardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	timeframes := f.Timeframes
	if timeframes == nil {
		timeframes = make(map[string][]models.LeaderboardEntry)
	}

	l.mu.Lock()
	l.leaders = f.Entries
	l.timeframes = timeframes
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadImpact(data []byte) error {
	var f impactFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	views := f.Views
	if views == nil {
		views = make(map[string]models.ImpactStats)
	}

	l.mu.Lock()
	l.impact = views
	l.recent = f.Recent
	l.mu.Unlock()
	return nil
}

// ListPins returns a copy of all pins in file order
func (l *Loader) ListPins() []models.Pin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Pin(nil), l.pins...)
}

// GetPin returns a pin by id
func (l *Loader) GetPin(id string) (models.Pin, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.pins {
		if p.ID == id {
			return p, true
		}
	}
	return models.Pin{}, false
}

// ListPosts returns a copy of all feed posts in file order
func (l *Loader) ListPosts() []models.Post {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Post(nil), l.posts...)
}

// GetPost returns a post by id
func (l *Loader) GetPost(id string) (models.Post, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.postByID[id]
	if !ok {
		return models.Post{}, false
	}
	return l.posts[i], true
}

// Leaders returns the entries of a timeframe, falling back to the default list
func (l *Loader) Leaders(timeframe string) []models.LeaderboardEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entries, ok := l.timeframes[timeframe]; ok {
		return append([]models.LeaderboardEntry(nil), entries...)
	}
	return append([]models.LeaderboardEntry(nil), l.leaders...)
}

// ImpactStats returns the stats of one view
func (l *Loader) ImpactStats(view string) (models.ImpactStats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.impact[view]
	return s, ok
}

// RecentImpact returns the recent impact items
func (l *Loader) RecentImpact() []models.ImpactItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.ImpactItem(nil), l.recent...)
}

// --- YAML file structs ---

type pinsFile struct {
	Pins []models.Pin `yaml:"pins"`
}

type feedFile struct {
	Posts []models.Post `yaml:"posts"`
}

type leaderboardFile struct {
	Entries    []models.LeaderboardEntry            `yaml:"entries"`
	Timeframes map[string][]models.LeaderboardEntry `yaml:"timeframes"`
}

type impactFile struct {
	Views  map[string]models.ImpactStats `yaml:"views"`
	Recent []models.ImpactItem           `yaml:"recent"`
}
