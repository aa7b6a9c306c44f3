// Package observability builds the structured logger every component shares.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/yomi/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Entries from a named component listed in cfg.Components are gated by that
// component's level instead of cfg.Level.
//
// Precondition: cfg.Level and every cfg.Components value must be one of
// "debug", "info", "warn", "error"; cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	base, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	levels := make(map[string]zapcore.Level, len(cfg.Components))
	floor := base
	for name, raw := range cfg.Components {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q for %q: %w", raw, name, err)
		}
		levels[name] = lvl
		floor = min(floor, lvl)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		// no sampling: every combat entry is written
		zapCfg.Sampling = nil
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(floor)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var opts []zap.Option
	if len(levels) > 0 {
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return &componentCore{Core: c, base: base, levels: levels}
		}))
	}
	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// componentCore applies per-component levels over a core opened at the
// lowest of them. A logger named "sim.script" matches a "sim" override.
type componentCore struct {
	zapcore.Core
	base   zapcore.Level
	levels map[string]zapcore.Level
}

func (c *componentCore) levelFor(name string) zapcore.Level {
	for name != "" {
		if lvl, ok := c.levels[name]; ok {
			return lvl
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.base
}

func (c *componentCore) With(fields []zapcore.Field) zapcore.Core {
	return &componentCore{Core: c.Core.With(fields), base: c.base, levels: c.levels}
}

func (c *componentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.levelFor(ent.LoggerName).Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// ForServer tags every entry of logger with the server identity.
func ForServer(logger *zap.Logger, s config.ServerConfig) *zap.Logger {
	return logger.With(
		zap.String("server_type", s.Type),
		zap.String("server_mode", s.Mode),
	)
}

// Component returns a child logger named after one subsystem.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return logger.Named(name)
}
