package content_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/yomi/internal/config"
	"github.com/cory-johannsen/yomi/internal/content"
)

func shippedConfig() config.ContentConfig {
	return config.ContentConfig{
		WeaponsDir: "../../content/weapons",
		BossesDir:  "../../content/bosses",
		EnemiesDir: "../../content/enemies",
		FoodsDir:   "../../content/foods",
		LootDir:    "../../content/loot",
	}
}

// tempContent lays out a minimal valid content tree and returns its config.
func tempContent(t *testing.T) config.ContentConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.ContentConfig{
		WeaponsDir: filepath.Join(root, "weapons"),
		BossesDir:  filepath.Join(root, "bosses"),
		EnemiesDir: filepath.Join(root, "enemies"),
		FoodsDir:   filepath.Join(root, "foods"),
		LootDir:    filepath.Join(root, "loot"),
	}
	for _, dir := range []string{cfg.WeaponsDir, cfg.BossesDir, cfg.EnemiesDir, cfg.FoodsDir, cfg.LootDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	writeFile(t, cfg.WeaponsDir, "bo.yaml", "id: bo\nname: Bo Staff\ntier: bamboo\nclass: staff\n")
	writeFile(t, cfg.LootDir, "imp_drops.yaml", "id: imp_drops\nguaranteed:\n  - item: ash\n    quantity: \"1\"\n")
	writeFile(t, cfg.EnemiesDir, "imp.yaml", "id: imp\nname: Imp\nmax_health: 20\nweapon: bo\nloot_table: imp_drops\n")
	return cfg
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ShippedContent(t *testing.T) {
	c, err := content.Load(shippedConfig())
	require.NoError(t, err)
	assert.Equal(t, 10, c.Weapons.Len())
	assert.Equal(t, 3, c.Bosses.Len())
	assert.Equal(t, 3, c.Enemies.Len())
	assert.Equal(t, 5, c.Foods.Len())
	assert.Equal(t, 6, c.Loot.Len())

	_, ok := c.Weapons.Get("katana")
	assert.True(t, ok)
	fox, err := c.Bosses.Get("kitsune_no_okami")
	require.NoError(t, err)
	assert.Equal(t, "kitsune", fox.Script)
}

func TestLoad_TempTree(t *testing.T) {
	c, err := content.Load(tempContent(t))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Enemies.Len())
	assert.Equal(t, 0, c.Bosses.Len())
}

func TestLoad_DanglingReferencesAreReportedTogether(t *testing.T) {
	cfg := tempContent(t)
	writeFile(t, cfg.EnemiesDir, "ghoul.yaml", "id: ghoul\nname: Ghoul\nmax_health: 30\nweapon: scythe\nloot_table: graves\n")

	_, err := content.Load(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `enemy "ghoul": unknown weapon "scythe"`)
	assert.Contains(t, err.Error(), `enemy "ghoul": unknown loot table "graves"`)
}

func TestLoad_MissingDirectory(t *testing.T) {
	cfg := tempContent(t)
	cfg.FoodsDir = filepath.Join(t.TempDir(), "absent")
	_, err := content.Load(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading foods")
}

func TestEmpty(t *testing.T) {
	c := content.Empty()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 0, c.Weapons.Len())
}

func TestFileClassification(t *testing.T) {
	tests := []struct {
		path       string
		definition bool
		script     bool
	}{
		{"content/weapons/katana.yaml", true, false},
		{"content/loot/x.YML", true, false},
		{"content/scripts/kitsune/hooks.lua", false, true},
		{"content/README.md", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.definition, content.IsDefinitionFile(tt.path), tt.path)
		assert.Equal(t, tt.script, content.IsScriptFile(tt.path), tt.path)
	}
}

func TestReloader_AppliesOnlyGoodGenerations(t *testing.T) {
	cfg := tempContent(t)
	var applied atomic.Int32
	var latest atomic.Pointer[content.Catalog]
	r := content.NewReloader(cfg, zaptest.NewLogger(t), func(c *content.Catalog) {
		applied.Add(1)
		latest.Store(c)
	})

	require.True(t, r.Reload())
	assert.Equal(t, int32(1), applied.Load())

	bad := writeFile(t, cfg.EnemiesDir, "broken.yaml", "id: broken\nname: Broken\nmax_health: 10\nweapon: nothing\n")
	assert.False(t, r.Reload())
	assert.Equal(t, int32(1), applied.Load())

	require.NoError(t, os.Remove(bad))
	writeFile(t, cfg.EnemiesDir, "imp2.yaml", "id: imp2\nname: Greater Imp\nmax_health: 40\nweapon: bo\n")
	r.OnChange(filepath.Join(cfg.EnemiesDir, "imp2.yaml"))
	assert.Equal(t, int32(2), applied.Load())
	assert.Equal(t, 2, latest.Load().Enemies.Len())

	r.OnChange(filepath.Join(cfg.EnemiesDir, "notes.txt"))
	assert.Equal(t, int32(2), applied.Load(), "non-definition files are ignored")
}

func TestWatcher_ReportsDefinitionChanges(t *testing.T) {
	cfg := tempContent(t)
	w, err := content.NewWatcher(zaptest.NewLogger(t), cfg.WeaponsDir, "")
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan string, 8)
	go w.Run(ctx, func(path string) { changed <- path })

	writeFile(t, cfg.WeaponsDir, "readme.txt", "ignored")
	want := writeFile(t, cfg.WeaponsDir, "jo.yaml", "id: jo\nname: Jo\ntier: bamboo\nclass: staff\n")

	select {
	case got := <-changed:
		assert.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := content.NewWatcher(nil, filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := content.NewWatcher(nil, t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
