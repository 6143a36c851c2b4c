package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/internal/storage"
)

// Purger deletes pending reactions last touched before cutoff
type Purger interface {
	PurgeStale(ctx context.Context, cutoff time.Time, keep storage.KeepFunc) (int, error)
}

// PostIndex tells whether a post is still in the feed
type PostIndex interface {
	GetPost(id string) (models.Post, bool)
}

// Cleaner periodically drops pending reactions the server never confirmed.
// Nothing confirms a reaction on its own, so every plain like or bookmark is
// pending. With a PostIndex only reactions on posts that left the feed are
// purged; without one every pending reaction expires after the retention.
type Cleaner struct {
	store     Purger
	posts     PostIndex
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewCleaner creates a new cleanup worker; posts may be nil
func NewCleaner(store Purger, posts PostIndex, interval, retention time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &Cleaner{
		store:     store,
		posts:     posts,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "retention", c.retention)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce purges once and returns how many reactions were removed
func (c *Cleaner) RunOnce(ctx context.Context) int {
	cutoff := c.now().Add(-c.retention)
	slog.Debug("running cleanup cycle", "cutoff", cutoff)

	var keep storage.KeepFunc
	if c.posts != nil {
		keep = func(entityID string) bool {
			_, ok := c.posts.GetPost(entityID)
			return ok
		}
	}

	purged, err := c.store.PurgeStale(ctx, cutoff, keep)
	if err != nil {
		slog.Error("failed to purge stale reactions", "error", err)
		return purged
	}

	if purged > 0 {
		slog.Info("stale reactions purged", "count", purged)
	}
	return purged
}
