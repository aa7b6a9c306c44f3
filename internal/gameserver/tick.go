// Package gameserver drives the combat simulation: a fixed-interval tick
// scheduler, the startup layout, periodic snapshot persistence, and the
// service that ties them together.
package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc advances one subsystem by dt seconds.
type TickFunc func(dt float64)

// TickManager runs every registered callback once per interval, in name order,
// on a single goroutine.
//
// Invariant: callbacks never run concurrently with each other.
type TickManager struct {
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	ticks map[string]TickFunc
	steps uint64
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration, logger *zap.Logger) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickManager{
		interval: interval,
		logger:   logger,
		ticks:    make(map[string]TickFunc),
	}
}

// Interval returns the fixed step length.
func (m *TickManager) Interval() time.Duration { return m.interval }

// RegisterTick registers fn under name. Replaces any existing callback.
func (m *TickManager) RegisterTick(name string, fn TickFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[name] = fn
}

// Unregister removes the callback registered under name.
func (m *TickManager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ticks, name)
}

// Steps returns how many ticks have fired.
func (m *TickManager) Steps() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps
}

// Step fires every callback once with dt equal to the interval.
func (m *TickManager) Step() {
	m.mu.Lock()
	names := make([]string, 0, len(m.ticks))
	for name := range m.ticks {
		names = append(names, name)
	}
	sort.Strings(names)
	callbacks := make([]TickFunc, len(names))
	for i, name := range names {
		callbacks[i] = m.ticks[name]
	}
	m.steps++
	m.mu.Unlock()

	dt := m.interval.Seconds()
	for _, fn := range callbacks {
		fn(dt)
	}
}

// Run fires ticks until ctx is cancelled.
//
// Postcondition: no callback is running when Run returns.
func (m *TickManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			m.Step()
			if took := time.Since(start); took > m.interval {
				m.logger.Warn("tick overran interval",
					zap.Duration("took", took),
					zap.Duration("interval", m.interval),
				)
			}
		}
	}
}

// Start runs the tick loop on its own goroutine until ctx is cancelled.
func (m *TickManager) Start(ctx context.Context) {
	go m.Run(ctx)
}
