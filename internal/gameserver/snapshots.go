package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/sim"
)

// finalSaveTimeout bounds the save made while shutting down.
const finalSaveTimeout = 5 * time.Second

// StateStore persists and restores world snapshots.
type StateStore interface {
	SaveState(ctx context.Context, s sim.State) error
	LoadPlayer(ctx context.Context, id string) (sim.PlayerState, error)
	LoadBoss(ctx context.Context, id string) (sim.BossState, error)
}

// Snapshotter periodically copies the world state into a StateStore.
type Snapshotter struct {
	world    *sim.World
	store    StateStore
	interval time.Duration
	logger   *zap.Logger
}

// NewSnapshotter returns a Snapshotter saving every interval.
//
// Precondition: world and store must be non-nil; interval must be > 0.
func NewSnapshotter(world *sim.World, store StateStore, interval time.Duration, logger *zap.Logger) *Snapshotter {
	if world == nil || store == nil {
		panic("gameserver.NewSnapshotter: world and store must be non-nil")
	}
	if interval <= 0 {
		panic("gameserver.NewSnapshotter: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{world: world, store: store, interval: interval, logger: logger}
}

// Save copies the current state and writes it. The world lock is released
// before the write begins.
func (s *Snapshotter) Save(ctx context.Context) error {
	start := time.Now()
	state := s.world.SaveState()
	if err := s.store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("saving world snapshot: %w", err)
	}
	s.logger.Debug("world snapshot saved",
		zap.Int("players", len(state.Players)),
		zap.Int("bosses", len(state.Bosses)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Run saves every interval until ctx is cancelled, then makes one last save.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			if err := s.Save(final); err != nil {
				s.logger.Error("final snapshot failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("periodic snapshot failed", zap.Error(err))
			}
		}
	}
}
