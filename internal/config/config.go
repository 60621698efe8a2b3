// Package config loads server settings from defaults, an optional config file,
// a .env file and TEENPATTI_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "TEENPATTI"

type Server struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type Database struct {
	Driver string `mapstructure:"driver"` // sqlite3 or pgx
	DSN    string `mapstructure:"dsn"`
}

type Game struct {
	MinPlayers    int           `mapstructure:"min_players"`
	MaxPlayers    int           `mapstructure:"max_players"`
	MinStake      int64         `mapstructure:"min_stake"`
	StartingChips int64         `mapstructure:"starting_chips"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"` // 0 disables the watchdog
}

type Settlement struct {
	RakeBps      uint32 `mapstructure:"rake_bps"`
	TokensPerWei int64  `mapstructure:"tokens_per_wei"`
	BuyFeeBps    uint32 `mapstructure:"buy_fee_bps"`
	SellFeeBps   uint32 `mapstructure:"sell_fee_bps"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the full server configuration.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Game       Game       `mapstructure:"game"`
	Settlement Settlement `mapstructure:"settlement"`
	Log        Log        `mapstructure:"log"`
}

// SetDefaults registers every key with its default so env overrides resolve during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./teenpatti.db")
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 6)
	v.SetDefault("game.min_stake", 10)
	v.SetDefault("game.starting_chips", 1_000_000)
	v.SetDefault("game.turn_timeout", time.Duration(0))
	v.SetDefault("settlement.rake_bps", 500)
	v.SetDefault("settlement.tokens_per_wei", 100)
	v.SetDefault("settlement.buy_fee_bps", 100)
	v.SetDefault("settlement.sell_fee_bps", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New returns a viper instance wired for the TEENPATTI_ environment.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env (if present), then the optional config file, then the environment.
func Load(v *viper.Viper, path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// maxSeats is the largest table the engine deals to.
const maxSeats = 6

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Game.MinPlayers < 2:
		return fmt.Errorf("game.min_players must be at least 2, got %d", c.Game.MinPlayers)
	case c.Game.MaxPlayers < c.Game.MinPlayers:
		return fmt.Errorf("game.max_players (%d) is below game.min_players (%d)", c.Game.MaxPlayers, c.Game.MinPlayers)
	case c.Game.MaxPlayers > maxSeats:
		return fmt.Errorf("game.max_players must be at most %d, got %d", maxSeats, c.Game.MaxPlayers)
	case c.Game.MinStake <= 0:
		return fmt.Errorf("game.min_stake must be positive, got %d", c.Game.MinStake)
	case c.Game.StartingChips <= 0:
		return fmt.Errorf("game.starting_chips must be positive, got %d", c.Game.StartingChips)
	case c.Game.TurnTimeout < 0:
		return fmt.Errorf("game.turn_timeout must not be negative, got %s", c.Game.TurnTimeout)
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(l Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
