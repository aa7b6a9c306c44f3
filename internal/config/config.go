// Package config provides Viper-based configuration loading for the combat server.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is "standalone" (state persisted to PostgreSQL) or "headless"
	// (in-memory only, no database).
	Mode string `mapstructure:"mode"`
	// Type is the server type identifier reported in logs.
	Type string `mapstructure:"type"`
}

// Persistent reports whether the server keeps state in the database.
func (s ServerConfig) Persistent() bool { return s.Mode == "standalone" }

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Components overrides Level per named logger, e.g. {"sim": "debug"}.
	Components map[string]string `mapstructure:"components"`
}

// SimulationConfig holds the tick scheduler settings.
type SimulationConfig struct {
	// TickInterval is the fixed simulation step.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// SnapshotInterval is how often world state is persisted; 0 disables saving.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	// BackpackSlots is the slot count of each player's inventory.
	BackpackSlots int `mapstructure:"backpack_slots"`
	// DashDistance is how far a Ki dash carries a combatant along its facing.
	DashDistance float64 `mapstructure:"dash_distance"`
}

// CombatConfig holds the combat tunables. Times are in seconds.
type CombatConfig struct {
	ParryWindow               float64 `mapstructure:"parry_window"`
	BlockStaminaCost          float64 `mapstructure:"block_stamina_cost"`
	HeavyStaminaMultiplier    float64 `mapstructure:"heavy_stamina_multiplier"`
	HeavyCooldownMultiplier   float64 `mapstructure:"heavy_cooldown_multiplier"`
	SpecialCooldownMultiplier float64 `mapstructure:"special_cooldown_multiplier"`
	LockOnRange               float64 `mapstructure:"lock_on_range"`
	LockOnTurnSpeed           float64 `mapstructure:"lock_on_turn_speed"`
	DashCost                  float64 `mapstructure:"dash_cost"`
	PowerStrikeCost           float64 `mapstructure:"power_strike_cost"`
	SpiritArrowCost           float64 `mapstructure:"spirit_arrow_cost"`
	ProjectileStickDuration   float64 `mapstructure:"projectile_stick_duration"`
}

// ChallengeConfig holds the boss challenge-run settings.
type ChallengeConfig struct {
	// SpeedRunLimit is the longest a speed run may take, in seconds.
	SpeedRunLimit float64 `mapstructure:"speed_run_limit"`
	// Bonus is the honor awarded for a completed challenge.
	Bonus int `mapstructure:"bonus"`
}

// ContentConfig locates the YAML definition directories.
type ContentConfig struct {
	WeaponsDir string `mapstructure:"weapons_dir"`
	BossesDir  string `mapstructure:"bosses_dir"`
	EnemiesDir string `mapstructure:"enemies_dir"`
	FoodsDir   string `mapstructure:"foods_dir"`
	LootDir    string `mapstructure:"loot_dir"`
	// LayoutFile places the enemies and bosses present at startup. Empty starts
	// an empty world.
	LayoutFile string `mapstructure:"layout_file"`
	// Watch enables hot reload when definition files change.
	Watch bool `mapstructure:"watch"`
}

// ScriptingConfig holds the Lua boss-hook settings.
type ScriptingConfig struct {
	// ScriptDir holds one subdirectory of .lua files per boss script zone.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit bounds each hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// DebugConfig holds the debug HTTP surface settings.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (d DebugConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Challenge  ChallengeConfig  `mapstructure:"challenge"`
	Content    ContentConfig    `mapstructure:"content"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateSimulation(c.Simulation),
		validateCombat(c.Combat),
		validateChallenge(c.Challenge),
		validateContent(c.Content),
		validateScripting(c.Scripting),
		validateDebug(c.Debug),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"standalone": true, "headless": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [standalone, headless], got %q", s.Mode)
	}
	if s.Type == "" {
		return errors.New("server.type must not be empty")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	var errs []string
	for _, name := range slices.Sorted(maps.Keys(l.Components)) {
		if !validLevels[l.Components[name]] {
			errs = append(errs, fmt.Sprintf("logging.components.%s must be one of [debug, info, warn, error], got %q", name, l.Components[name]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.SnapshotInterval < 0 {
		errs = append(errs, "simulation.snapshot_interval must not be negative")
	}
	if s.BackpackSlots < 0 {
		errs = append(errs, fmt.Sprintf("simulation.backpack_slots must be >= 0, got %d", s.BackpackSlots))
	}
	if s.DashDistance < 0 {
		errs = append(errs, "simulation.dash_distance must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	for name, v := range map[string]float64{
		"combat.parry_window":              c.ParryWindow,
		"combat.block_stamina_cost":        c.BlockStaminaCost,
		"combat.lock_on_range":             c.LockOnRange,
		"combat.lock_on_turn_speed":        c.LockOnTurnSpeed,
		"combat.dash_cost":                 c.DashCost,
		"combat.power_strike_cost":         c.PowerStrikeCost,
		"combat.spirit_arrow_cost":         c.SpiritArrowCost,
		"combat.projectile_stick_duration": c.ProjectileStickDuration,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative, got %v", name, v))
		}
	}
	for name, v := range map[string]float64{
		"combat.heavy_stamina_multiplier":    c.HeavyStaminaMultiplier,
		"combat.heavy_cooldown_multiplier":   c.HeavyCooldownMultiplier,
		"combat.special_cooldown_multiplier": c.SpecialCooldownMultiplier,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0, got %v", name, v))
		}
	}
	if len(errs) > 0 {
		// map iteration order is random; keep the message stable
		slices.Sort(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateChallenge(c ChallengeConfig) error {
	var errs []string
	if c.SpeedRunLimit <= 0 {
		errs = append(errs, fmt.Sprintf("challenge.speed_run_limit must be > 0, got %v", c.SpeedRunLimit))
	}
	if c.Bonus < 0 {
		errs = append(errs, fmt.Sprintf("challenge.bonus must be >= 0, got %d", c.Bonus))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.WeaponsDir == "" {
		errs = append(errs, "content.weapons_dir must not be empty")
	}
	if c.BossesDir == "" {
		errs = append(errs, "content.bosses_dir must not be empty")
	}
	if c.EnemiesDir == "" {
		errs = append(errs, "content.enemies_dir must not be empty")
	}
	if c.FoodsDir == "" {
		errs = append(errs, "content.foods_dir must not be empty")
	}
	if c.LootDir == "" {
		errs = append(errs, "content.loot_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateDebug(d DebugConfig) error {
	if !d.Enabled {
		return nil
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("debug.port must be 1-65535, got %d", d.Port)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with YOMI_ prefix
	v.SetEnvPrefix("YOMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance carrying only the built-in defaults.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.type", "yomi")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "yomi")
	v.SetDefault("database.password", "yomi")
	v.SetDefault("database.name", "yomi")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("simulation.tick_interval", "16ms")
	v.SetDefault("simulation.snapshot_interval", "30s")
	v.SetDefault("simulation.backpack_slots", 40)
	v.SetDefault("simulation.dash_distance", 300)

	v.SetDefault("combat.parry_window", 0.2)
	v.SetDefault("combat.block_stamina_cost", 15)
	v.SetDefault("combat.heavy_stamina_multiplier", 1.5)
	v.SetDefault("combat.heavy_cooldown_multiplier", 1.5)
	v.SetDefault("combat.special_cooldown_multiplier", 2.0)
	v.SetDefault("combat.lock_on_range", 1500)
	v.SetDefault("combat.lock_on_turn_speed", 10)
	v.SetDefault("combat.dash_cost", 15)
	v.SetDefault("combat.power_strike_cost", 25)
	v.SetDefault("combat.spirit_arrow_cost", 20)
	v.SetDefault("combat.projectile_stick_duration", 10)

	v.SetDefault("challenge.speed_run_limit", 120)
	v.SetDefault("challenge.bonus", 100)

	v.SetDefault("content.weapons_dir", "content/weapons")
	v.SetDefault("content.bosses_dir", "content/bosses")
	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.foods_dir", "content/foods")
	v.SetDefault("content.loot_dir", "content/loot")
	v.SetDefault("content.layout_file", "content/layout.yaml")
	v.SetDefault("content.watch", false)

	v.SetDefault("scripting.script_dir", "content/scripts")
	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.host", "127.0.0.1")
	v.SetDefault("debug.port", 8089)
}
