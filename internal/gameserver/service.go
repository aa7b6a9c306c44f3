package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/storage/postgres"
)

// worldTick is the name the simulation step is registered under.
const worldTick = "world"

// SimConfig maps the loaded configuration onto the world tunables.
// Tunables the configuration does not carry keep their defaults.
func SimConfig(cfg config.Config) sim.Config {
	c := sim.DefaultConfig()
	c.Combat.ParryWindow = cfg.Combat.ParryWindow
	c.Combat.BlockStaminaCost = cfg.Combat.BlockStaminaCost
	c.Combat.HeavyStaminaMultiplier = cfg.Combat.HeavyStaminaMultiplier
	c.Combat.HeavyCooldownMultiplier = cfg.Combat.HeavyCooldownMultiplier
	c.Combat.SpecialCooldownMultiplier = cfg.Combat.SpecialCooldownMultiplier
	c.Combat.LockOnRange = cfg.Combat.LockOnRange
	c.Combat.LockOnTurnSpeed = cfg.Combat.LockOnTurnSpeed
	c.Combat.DashCost = cfg.Combat.DashCost
	c.Combat.PowerStrikeCost = cfg.Combat.PowerStrikeCost
	c.Combat.SpiritArrowCost = cfg.Combat.SpiritArrowCost
	c.Boss.SpeedRunLimit = cfg.Challenge.SpeedRunLimit
	c.Boss.ChallengeBonus = cfg.Challenge.Bonus
	c.BackpackSlots = cfg.Simulation.BackpackSlots
	c.DashDistance = cfg.Simulation.DashDistance
	c.StickDuration = cfg.Combat.ProjectileStickDuration
	return c
}

// Service runs the simulation tick and, when a store is configured, the
// periodic snapshot. It satisfies server.Service.
type Service struct {
	world  *sim.World
	ticks  *TickManager
	store  StateStore
	snap   *Snapshotter
	logger *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewService registers world on ticks. store may be nil to run without
// persistence; snapshotInterval 0 disables periodic saving.
//
// Precondition: world and ticks must be non-nil.
// Postcondition: world.Tick is registered on ticks.
func NewService(world *sim.World, ticks *TickManager, store StateStore, snapshotInterval time.Duration, logger *zap.Logger) *Service {
	if world == nil || ticks == nil {
		panic("gameserver.NewService: world and ticks must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		world:  world,
		ticks:  ticks,
		store:  store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if store != nil && snapshotInterval > 0 {
		s.snap = NewSnapshotter(world, store, snapshotInterval, logger)
	}
	ticks.RegisterTick(worldTick, world.Tick)
	return s
}

// World returns the simulation the service drives.
func (s *Service) World() *sim.World { return s.world }

// RestoreBosses overwrites each boss in ids from its saved state. Bosses with
// no saved state keep their fresh spawn.
//
// Postcondition: Returns the number of bosses restored.
func (s *Service) RestoreBosses(ctx context.Context, ids []string) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	n := 0
	for _, id := range ids {
		bs, err := s.store.LoadBoss(ctx, id)
		if errors.Is(err, postgres.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if err := s.world.RestoreBoss(bs); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Join adds a player at pos and restores their saved state when one exists.
//
// Postcondition: on success the player is on the roster; restored reports
// whether saved state was applied.
func (s *Service) Join(ctx context.Context, id string, pos cp.Vector) (restored bool, err error) {
	if err := s.world.AddPlayer(id, pos); err != nil {
		return false, err
	}
	if s.store == nil {
		return false, nil
	}
	ps, err := s.store.LoadPlayer(ctx, id)
	if errors.Is(err, postgres.ErrSnapshotNotFound) {
		s.logger.Info("player joined", zap.String("player", id))
		return false, nil
	}
	if err == nil {
		err = s.world.RestorePlayer(ps)
	}
	if err != nil {
		_ = s.world.Remove(id)
		return false, fmt.Errorf("restoring player %q: %w", id, err)
	}
	s.logger.Info("player rejoined",
		zap.String("player", id),
		zap.Int("honor", ps.Progress.Honor),
	)
	return true, nil
}

// Leave saves the player's state, when a store is configured, and removes
// them from the roster.
func (s *Service) Leave(ctx context.Context, id string) error {
	if s.store != nil {
		for _, ps := range s.world.SaveState().Players {
			if ps.Vitals.ID != id {
				continue
			}
			if err := s.store.SaveState(ctx, sim.State{Players: []sim.PlayerState{ps}}); err != nil {
				return fmt.Errorf("saving player %q: %w", id, err)
			}
		}
	}
	if err := s.world.Remove(id); err != nil {
		return err
	}
	s.logger.Info("player left", zap.String("player", id))
	return nil
}

// Start runs the tick loop, and the snapshot loop when enabled, until Stop.
func (s *Service) Start() error {
	s.running.Add(1)
	defer s.running.Done()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.ticks.Run(s.ctx)
	}()
	if s.snap != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.snap.Run(s.ctx)
		}()
	}
	s.logger.Info("simulation running",
		zap.Duration("tick_interval", s.ticks.Interval()),
		zap.Bool("snapshots", s.snap != nil),
	)
	wg.Wait()
	return nil
}

// Stop cancels the loops and waits for Start to return.
func (s *Service) Stop() {
	s.cancel()
	s.running.Wait()
}
