package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/impact-portal/internal/models"
)

// MemoryStore is an in-process ReactionStore
type MemoryStore struct {
	mu        sync.RWMutex
	reactions map[string]map[string]models.Reaction
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reactions: make(map[string]map[string]models.Reaction),
	}
}

// ListReactions returns the viewer's reactions ordered by entity and kind
func (s *MemoryStore) ListReactions(ctx context.Context, viewerID string) ([]models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byField := s.reactions[viewerID]
	out := make([]models.Reaction, 0, len(byField))
	for _, r := range byField {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// PutReaction inserts or replaces a reaction
func (s *MemoryStore) PutReaction(ctx context.Context, r models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	byField, ok := s.reactions[r.ViewerID]
	if !ok {
		byField = make(map[string]models.Reaction)
		s.reactions[r.ViewerID] = byField
	}
	byField[reactionField(r.EntityID, r.Kind)] = r
	return nil
}

// DeleteReaction removes a reaction
func (s *MemoryStore) DeleteReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byField, ok := s.reactions[viewerID]; ok {
		delete(byField, reactionField(entityID, kind))
		if len(byField) == 0 {
			delete(s.reactions, viewerID)
		}
	}
	return nil
}

// ConfirmReaction marks a reaction as confirmed
func (s *MemoryStore) ConfirmReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	field := reactionField(entityID, kind)
	r, ok := s.reactions[viewerID][field]
	if !ok || r.State == models.ReactionWithdrawn {
		return ErrReactionNotFound
	}
	r.State = models.ReactionConfirmed
	r.UpdatedAt = time.Now().UTC()
	s.reactions[viewerID][field] = r
	return nil
}

// PurgeStale deletes pending reactions older than cutoff
func (s *MemoryStore) PurgeStale(ctx context.Context, cutoff time.Time, keep KeepFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for viewer, byField := range s.reactions {
		for field, r := range byField {
			if r.State == models.ReactionPending && r.UpdatedAt.Before(cutoff) && !keep.keeps(r.EntityID) {
				delete(byField, field)
				purged++
			}
		}
		if len(byField) == 0 {
			delete(s.reactions, viewer)
		}
	}
	return purged, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
