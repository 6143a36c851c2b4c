package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/impact-portal/internal/models"
)

const redisKeyPrefix = "impact:reactions:"

// RedisStore keeps one hash per viewer, keyed by kind and entity
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type redisReaction struct {
	State     models.ReactionState `json:"state"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewRedisStore connects to Redis
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for health checks
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func viewerKey(viewerID string) string {
	return redisKeyPrefix + viewerID
}

// ListReactions returns every reaction of a viewer
func (s *RedisStore) ListReactions(ctx context.Context, viewerID string) ([]models.Reaction, error) {
	fields, err := s.client.HGetAll(ctx, viewerKey(viewerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}

	out := make([]models.Reaction, 0, len(fields))
	for field, raw := range fields {
		r, err := decodeRedisReaction(viewerID, field, raw)
		if err != nil {
			return nil, err
		}
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
func (s *RedisStore) PutReaction(ctx context.Context, r models.Reaction) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(redisReaction{State: r.State, UpdatedAt: r.UpdatedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal reaction: %w", err)
	}

	if err := s.client.HSet(ctx, viewerKey(r.ViewerID), reactionField(r.EntityID, r.Kind), data).Err(); err != nil {
		return fmt.Errorf("failed to put reaction: %w", err)
	}
	return nil
}

// DeleteReaction removes a reaction
func (s *RedisStore) DeleteReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	if err := s.client.HDel(ctx, viewerKey(viewerID), reactionField(entityID, kind)).Err(); err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	return nil
}

// ConfirmReaction marks a reaction as counted by the server
func (s *RedisStore) ConfirmReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	field := reactionField(entityID, kind)
	raw, err := s.client.HGet(ctx, viewerKey(viewerID), field).Result()
	if errors.Is(err, redis.Nil) {
		return ErrReactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get reaction: %w", err)
	}

	r, err := decodeRedisReaction(viewerID, field, raw)
	if err != nil {
		return err
	}
	if r.State == models.ReactionWithdrawn {
		return ErrReactionNotFound
	}
	r.State = models.ReactionConfirmed
	r.UpdatedAt = time.Now().UTC()
	return s.PutReaction(ctx, r)
}

// PurgeStale scans every viewer hash and drops pending reactions older than cutoff
func (s *RedisStore) PurgeStale(ctx context.Context, cutoff time.Time, keep KeepFunc) (int, error) {
	purged := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		viewerID := strings.TrimPrefix(key, redisKeyPrefix)

		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to read %s: %w", key, err)
		}

		var stale []string
		for field, raw := range fields {
			r, err := decodeRedisReaction(viewerID, field, raw)
			if err != nil {
				stale = append(stale, field)
				continue
			}
			if r.State == models.ReactionPending && r.UpdatedAt.Before(cutoff) && !keep.keeps(r.EntityID) {
				stale = append(stale, field)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if err := s.client.HDel(ctx, key, stale...).Err(); err != nil {
			return purged, fmt.Errorf("failed to purge %s: %w", key, err)
		}
		purged += len(stale)
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("failed to scan reactions: %w", err)
	}

	return purged, nil
}

// Ping checks Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRedisReaction(viewerID, field, raw string) (models.Reaction, error) {
	kind, entityID, ok := strings.Cut(field, ":")
	if !ok {
		return models.Reaction{}, fmt.Errorf("malformed reaction field %q", field)
	}

	var stored redisReaction
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return models.Reaction{}, fmt.Errorf("failed to unmarshal reaction %q: %w", field, err)
	}

	return models.Reaction{
		ViewerID:  viewerID,
		EntityID:  entityID,
		Kind:      models.ReactionKind(kind),
		State:     stored.State,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}
