package gameserver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/player"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/gameserver"
)

func TestSimConfig_MapsTunables(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Challenge.Bonus = 250
	cfg.Challenge.SpeedRunLimit = 90
	cfg.Combat.DashCost = 7
	cfg.Simulation.BackpackSlots = 12
	cfg.Combat.ProjectileStickDuration = 4

	c := gameserver.SimConfig(cfg)
	assert.Equal(t, 250, c.Boss.ChallengeBonus)
	assert.Equal(t, 90.0, c.Boss.SpeedRunLimit)
	assert.Equal(t, 7.0, c.Combat.DashCost)
	assert.Equal(t, 12, c.BackpackSlots)
	assert.Equal(t, 4.0, c.StickDuration)
	assert.Equal(t, sim.DefaultConfig().MeleeArc, c.MeleeArc)
}

func newService(t *testing.T, store gameserver.StateStore) *gameserver.Service {
	t.Helper()
	tm := gameserver.NewTickManager(10*time.Millisecond, zaptest.NewLogger(t))
	return gameserver.NewService(newWorld(t), tm, store, 0, zaptest.NewLogger(t))
}

func TestService_JoinWithoutStore(t *testing.T) {
	svc := newService(t, nil)
	restored, err := svc.Join(context.Background(), "hero", cp.Vector{})
	require.NoError(t, err)
	assert.False(t, restored)

	view, ok := svc.World().Combatant("hero")
	require.True(t, ok)
	assert.Equal(t, "player", view.Kind)
}

func TestService_JoinRestoresSavedPlayer(t *testing.T) {
	store := newMemStore()
	store.players["hero"] = sim.PlayerState{
		Vitals:   vitals.Snapshot{ID: "hero", Health: 40, MaxHealth: 100, Stamina: 100, MaxStamina: 100, Energy: 50, MaxEnergy: 50},
		Progress: player.Snapshot{ID: "hero", Honor: 320, Defeated: []boss.Type{boss.TypeMizuchi}},
	}
	svc := newService(t, store)

	restored, err := svc.Join(context.Background(), "hero", cp.Vector{})
	require.NoError(t, err)
	assert.True(t, restored)

	view, ok := svc.World().Combatant("hero")
	require.True(t, ok)
	assert.Equal(t, 40.0, view.Vitals.Health)
	require.NotNil(t, view.Progress)
	assert.Equal(t, 320, view.Progress.Honor)
}

func TestService_JoinDuplicateFails(t *testing.T) {
	svc := newService(t, newMemStore())
	_, err := svc.Join(context.Background(), "hero", cp.Vector{})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), "hero", cp.Vector{})
	assert.ErrorIs(t, err, sim.ErrDuplicateID)
}

func TestService_LeaveSavesAndRemoves(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()
	_, err := svc.Join(ctx, "hero", cp.Vector{})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, "hero"))
	_, ok := svc.World().Combatant("hero")
	assert.False(t, ok)
	saved, err := store.LoadPlayer(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, "hero", saved.Progress.ID)
}

func TestService_LeaveSaveFailureKeepsPlayer(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()
	_, err := svc.Join(ctx, "hero", cp.Vector{})
	require.NoError(t, err)

	store.failing = errors.New("disk full")
	require.Error(t, svc.Leave(ctx, "hero"))
	_, ok := svc.World().Combatant("hero")
	assert.True(t, ok)
}

func TestService_RestoreBosses(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	w := svc.World()
	require.NoError(t, w.SpawnBoss("mizuchi", "river", cp.Vector{}))
	require.NoError(t, w.SpawnBoss("kitsune_no_okami", "fox", cp.Vector{X: 9000}))

	store.bosses["river"] = sim.BossState{
		Vitals: vitals.Snapshot{ID: "river", Health: 300, MaxHealth: 1000, Stamina: 200, MaxStamina: 200},
		Encounter: boss.Snapshot{
			ID:           uuid.New().String(),
			BossID:       "river",
			DefID:        "mizuchi",
			State:        boss.Active,
			Phase:        2,
			ChallengerID: "gone",
		},
	}

	n, err := svc.RestoreBosses(context.Background(), []string{"river", "fox"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	enc, ok := w.Encounter("river")
	require.True(t, ok)
	assert.Equal(t, boss.Ended, enc.State, "challenger is not on the roster")
	assert.Equal(t, 2, enc.Phase)

	fox, ok := w.Encounter("fox")
	require.True(t, ok)
	assert.Equal(t, boss.Inactive, fox.State)
}

func TestService_StartTicksUntilStop(t *testing.T) {
	svc := newService(t, nil)
	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	require.Eventually(t, func() bool { return svc.World().Elapsed() > 0 }, time.Second, 5*time.Millisecond)
	svc.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestSnapshotter_SavesPeriodicallyAndOnShutdown(t *testing.T) {
	store := newMemStore()
	w := newWorld(t)
	require.NoError(t, w.AddPlayer("hero", cp.Vector{}))
	snap := gameserver.NewSnapshotter(w, store, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		snap.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.saveCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	before := store.saveCount()
	assert.GreaterOrEqual(t, before, 3, "a final save follows cancellation")

	_, err := store.LoadPlayer(context.Background(), "hero")
	assert.NoError(t, err)
}

func TestSnapshotter_SaveWrapsStoreError(t *testing.T) {
	store := newMemStore()
	store.failing = errors.New("connection refused")
	snap := gameserver.NewSnapshotter(newWorld(t), store, time.Second, nil)
	err := snap.Save(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.failing)
}
