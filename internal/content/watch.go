package content

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/config"
)

// DefaultDebounce is the minimum spacing between two notifications for the same file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to definition and script files in a set of
// directories. Repeated events for one file inside the debounce interval are
// collapsed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	once     sync.Once
}

// NewWatcher starts watching dirs. Empty entries are skipped.
//
// Precondition: every non-empty dir must exist.
// Postcondition: Returns a Watcher that must be closed, or a non-nil error.
func NewWatcher(logger *zap.Logger, dirs ...string) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return &Watcher{watcher: fw, logger: logger, debounce: DefaultDebounce}, nil
}

// Close stops the underlying watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Run delivers the path of every relevant change to onChange until ctx is
// cancelled or the watcher is closed. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	last := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !IsDefinitionFile(ev.Name) && !IsScriptFile(ev.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[ev.Name]; ok && now.Sub(t) < w.debounce {
				continue
			}
			last[ev.Name] = now
			onChange(ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("content watcher error", zap.Error(err))
		}
	}
}

// IsDefinitionFile reports whether path is a YAML definition.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// IsScriptFile reports whether path is a Lua script.
func IsScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".lua"
}

// Reloader rebuilds the Catalog when definitions change and hands each good
// generation to apply. A generation that fails to load is logged and
// discarded so the previous one stays live.
type Reloader struct {
	cfg    config.ContentConfig
	logger *zap.Logger
	apply  func(*Catalog)
}

// NewReloader creates a Reloader for the directories in cfg.
//
// Precondition: apply must not be nil.
func NewReloader(cfg config.ContentConfig, logger *zap.Logger, apply func(*Catalog)) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{cfg: cfg, logger: logger, apply: apply}
}

// Reload loads a fresh Catalog and applies it.
//
// Postcondition: apply is called iff the load succeeded; the return value reports which.
func (r *Reloader) Reload() bool {
	c, err := Load(r.cfg)
	if err != nil {
		r.logger.Warn("content reload rejected", zap.Error(err))
		return false
	}
	r.apply(c)
	r.logger.Info("content reloaded",
		zap.Int("weapons", c.Weapons.Len()),
		zap.Int("bosses", c.Bosses.Len()),
		zap.Int("enemies", c.Enemies.Len()),
		zap.Int("foods", c.Foods.Len()),
		zap.Int("loot_tables", c.Loot.Len()),
	)
	return true
}

// OnChange is a Watcher callback that reloads on definition changes.
func (r *Reloader) OnChange(path string) {
	if !IsDefinitionFile(path) {
		return
	}
	r.logger.Debug("definition changed", zap.String("path", path))
	r.Reload()
}
