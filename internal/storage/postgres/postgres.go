// Package postgres persists combat state (vitals, weapons, progression and
// boss encounters) in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	pingTimeout     = 2 * time.Second
)

// Store owns the connection pool shared by the snapshot repository.
type Store struct {
	pool      *pgxpool.Pool
	snapshots *SnapshotRepository
}

// Open connects to PostgreSQL, retrying the first ping with a doubling
// backoff while the database comes up.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a Store whose pool answered a ping, or a non-nil error.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = ping(ctx, pool)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("pinging %s:%d after %d attempts: %w", cfg.Host, cfg.Port, attempt, err)
		}
		logger.Warn("database not ready",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("connecting to database: %w", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}

	return NewStore(pool), nil
}

// NewStore wraps an already connected pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, snapshots: NewSnapshotRepository(pool)}
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return pool.Ping(ctx)
}

// Ping reports whether the database answers within a short timeout.
func (s *Store) Ping(ctx context.Context) error {
	if err := ping(ctx, s.pool); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Snapshots returns the repository used for world state.
func (s *Store) Snapshots() *SnapshotRepository {
	return s.snapshots
}

// Close releases all pool resources.
//
// Postcondition: The Store is no longer usable.
func (s *Store) Close() {
	s.pool.Close()
}
