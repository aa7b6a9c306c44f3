package gameserver_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/content"
	"github.com/cory-johannsen/yomi/internal/game/dice"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/gameserver"
	"github.com/cory-johannsen/yomi/internal/storage/postgres"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFromViper(config.Defaults())
	require.NoError(t, err)
	return cfg
}

// shippedCatalog loads the definitions under content/ at the repository root.
func shippedCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Load(config.ContentConfig{
		WeaponsDir: "../../content/weapons",
		BossesDir:  "../../content/bosses",
		EnemiesDir: "../../content/enemies",
		FoodsDir:   "../../content/foods",
		LootDir:    "../../content/loot",
	})
	require.NoError(t, err)
	return c
}

func newWorld(t *testing.T) *sim.World {
	t.Helper()
	roller := dice.NewLoggedRoller(dice.NewSeededSource(3), zap.NewNop())
	return sim.New(gameserver.SimConfig(defaultConfig(t)), shippedCatalog(t), roller, zap.NewNop())
}

// memStore is an in-memory StateStore.
type memStore struct {
	mu      sync.Mutex
	players map[string]sim.PlayerState
	bosses  map[string]sim.BossState
	saves   int
	failing error
}

func newMemStore() *memStore {
	return &memStore{
		players: make(map[string]sim.PlayerState),
		bosses:  make(map[string]sim.BossState),
	}
}

func (m *memStore) SaveState(_ context.Context, s sim.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	m.saves++
	for _, p := range s.Players {
		m.players[p.Vitals.ID] = p
	}
	for _, b := range s.Bosses {
		m.bosses[b.Vitals.ID] = b
	}
	return nil
}

func (m *memStore) LoadPlayer(_ context.Context, id string) (sim.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return p, fmt.Errorf("loading %q: %w", id, postgres.ErrSnapshotNotFound)
	}
	return p, nil
}

func (m *memStore) LoadBoss(_ context.Context, id string) (sim.BossState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bosses[id]
	if !ok {
		return b, fmt.Errorf("loading %q: %w", id, postgres.ErrSnapshotNotFound)
	}
	return b, nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
