package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/impact-portal/internal/models"
)

// PostgresRepository implements ReactionStore using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 2
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ListReactions returns every reaction of a viewer
func (r *PostgresRepository) ListReactions(ctx context.Context, viewerID string) ([]models.Reaction, error) {
	query := `
		SELECT viewer_id, entity_id, kind, state, updated_at
		FROM reactions
		WHERE viewer_id = $1
		ORDER BY entity_id, kind
	`

	rows, err := r.pool.Query(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}

	reactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Reaction, error) {
		var rc models.Reaction
		var kind, state string
		if err := row.Scan(&rc.ViewerID, &rc.EntityID, &kind, &state, &rc.UpdatedAt); err != nil {
			return rc, err
		}
		rc.Kind = models.ReactionKind(kind)
		rc.State = models.ReactionState(state)
		return rc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan reactions: %w", err)
	}

	return reactions, nil
}

// PutReaction upserts a reaction
func (r *PostgresRepository) PutReaction(ctx context.Context, rc models.Reaction) error {
	if rc.UpdatedAt.IsZero() {
		rc.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reactions (viewer_id, entity_id, kind, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (viewer_id, entity_id, kind) DO UPDATE
		SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, rc.ViewerID, rc.EntityID, string(rc.Kind), string(rc.State), rc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put reaction: %w", err)
	}

	return nil
}

// DeleteReaction removes a reaction
func (r *PostgresRepository) DeleteReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	query := `DELETE FROM reactions WHERE viewer_id = $1 AND entity_id = $2 AND kind = $3`

	if _, err := r.pool.Exec(ctx, query, viewerID, entityID, string(kind)); err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}

	return nil
}

// ConfirmReaction marks a reaction as counted by the server
func (r *PostgresRepository) ConfirmReaction(ctx context.Context, viewerID, entityID string, kind models.ReactionKind) error {
	query := `
		UPDATE reactions
		SET state = $4, updated_at = NOW()
		WHERE viewer_id = $1 AND entity_id = $2 AND kind = $3 AND state <> $5
	`

	result, err := r.pool.Exec(ctx, query, viewerID, entityID, string(kind),
		string(models.ReactionConfirmed), string(models.ReactionWithdrawn))
	if err != nil {
		return fmt.Errorf("failed to confirm reaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrReactionNotFound
	}

	return nil
}

// PurgeStale deletes pending reactions older than cutoff
func (r *PostgresRepository) PurgeStale(ctx context.Context, cutoff time.Time, keep KeepFunc) (int, error) {
	if keep == nil {
		query := `DELETE FROM reactions WHERE state = $1 AND updated_at < $2`

		result, err := r.pool.Exec(ctx, query, string(models.ReactionPending), cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to purge stale reactions: %w", err)
		}
		return int(result.RowsAffected()), nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT entity_id FROM reactions WHERE state = $1 AND updated_at < $2`,
		string(models.ReactionPending), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale reactions: %w", err)
	}
	entities, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("failed to scan stale reactions: %w", err)
	}

	var doomed []string
	for _, id := range entities {
		if !keep(id) {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	query := `DELETE FROM reactions WHERE state = $1 AND updated_at < $2 AND entity_id = ANY($3)`

	result, err := r.pool.Exec(ctx, query, string(models.ReactionPending), cutoff, doomed)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale reactions: %w", err)
	}

	return int(result.RowsAffected()), nil
}
