package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/impact-portal/internal/models"
)

// ErrReactionNotFound is returned when a reaction does not exist
var ErrReactionNotFound = errors.New("reaction not found")

// ReactionStore persists per-viewer likes and bookmarks
type ReactionStore interface {
	// ListReactions returns every reaction recorded for a viewer
	ListReactions(ctx context.Context, viewerID string) ([]models.Reaction, error)
	// PutReaction inserts or replaces a reaction
	PutReaction(ctx context.Context, r models.Reaction) error
	// DeleteReaction removes a reaction; deleting a missing one is not an error
	DeleteReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error
	// ConfirmReaction marks a reaction as counted by the server; withdrawn
	// reactions count as missing
	ConfirmReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error
	// PurgeStale deletes pending reactions last updated before cutoff. When
	// keep is set, reactions on entities it reports are left alone.
	PurgeStale(ctx context.Context, cutoff time.Time, keep KeepFunc) (int, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// KeepFunc reports whether reactions on an entity must survive a purge
type KeepFunc func(entityID string) bool

func (k KeepFunc) keeps(entityID string) bool {
	return k != nil && k(entityID)
}

// reactionField is the per-viewer key of a reaction
func reactionField(entityID string, kind models.ReactionKind) string {
	return string(kind) + ":" + entityID
}
