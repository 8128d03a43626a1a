// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/launchpad"
)

// EnvPrefix prefixes every environment override, e.g. LAUNCHPAD_API_LISTEN_ADDR.
const EnvPrefix = "LAUNCHPAD"

type Config struct {
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	Log       LogConfig       `mapstructure:"log"`
	API       APIConfig       `mapstructure:"api"`
	Migration MigrationConfig `mapstructure:"migration"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Authority AuthorityConfig `mapstructure:"authority"`
}

// ProtocolConfig seeds the global config on initialize.
type ProtocolConfig struct {
	InitialVirtualSol   uint64 `mapstructure:"initial_virtual_sol"`
	InitialVirtualToken uint64 `mapstructure:"initial_virtual_token"`
	InitialRealToken    uint64 `mapstructure:"initial_real_token"`
	TokenTotalSupply    uint64 `mapstructure:"token_total_supply"`
	TokenDecimals       uint8  `mapstructure:"token_decimals"`
	TradeFeeBps         uint16 `mapstructure:"trade_fee_bps"`
	CreatorShareBps     uint16 `mapstructure:"creator_share_bps"`
	ReferralShareBps    uint16 `mapstructure:"referral_share_bps"`
	GraduationThreshold uint64 `mapstructure:"graduation_threshold"`
	MigrationFee        uint64 `mapstructure:"migration_fee"`
}

// Defaults converts the section for launchpad.WithDefaults.
func (p ProtocolConfig) Defaults() launchpad.Defaults {
	return launchpad.Defaults{
		InitialVirtualSol:   p.InitialVirtualSol,
		InitialVirtualToken: p.InitialVirtualToken,
		InitialRealToken:    p.InitialRealToken,
		TokenTotalSupply:    p.TokenTotalSupply,
		TokenDecimals:       p.TokenDecimals,
		TradeFeeBps:         p.TradeFeeBps,
		CreatorShareBps:     p.CreatorShareBps,
		ReferralShareBps:    p.ReferralShareBps,
		GraduationThreshold: p.GraduationThreshold,
		MigrationFee:        p.MigrationFee,
	}
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
}

type APIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type MigrationConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Destination     string        `mapstructure:"destination"` // base58 wallet receiving liquidity
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Concurrency     int           `mapstructure:"concurrency"`
	QueueSize       int           `mapstructure:"queue_size"`
}

type ArchiveConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	PostgresURL     string        `mapstructure:"postgres_url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type EventsConfig struct {
	BufferSize   int           `mapstructure:"buffer_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"` // ledger tail polling for /v1/stream
}

// AuthorityConfig names the protocol authority key. KeyFile wins over Key.
type AuthorityConfig struct {
	KeyFile string `mapstructure:"key_file"`
	Key     string `mapstructure:"key"`
}

func defaults() map[string]interface{} {
	d := launchpad.DefaultParams()
	return map[string]interface{}{
		"protocol.initial_virtual_sol":   d.InitialVirtualSol,
		"protocol.initial_virtual_token": d.InitialVirtualToken,
		"protocol.initial_real_token":    d.InitialRealToken,
		"protocol.token_total_supply":    d.TokenTotalSupply,
		"protocol.token_decimals":        d.TokenDecimals,
		"protocol.trade_fee_bps":         d.TradeFeeBps,
		"protocol.creator_share_bps":     d.CreatorShareBps,
		"protocol.referral_share_bps":    d.ReferralShareBps,
		"protocol.graduation_threshold":  d.GraduationThreshold,
		"protocol.migration_fee":         d.MigrationFee,

		"log.file":        "launchpad.log",
		"log.development": false,
		"log.max_size":    100,
		"log.max_age":     7,
		"log.max_backups": 3,
		"log.compress":    true,

		"api.enabled":          true,
		"api.listen_addr":      ":8080",
		"api.shutdown_timeout": 5 * time.Second,
		"api.max_page_size":    200,

		"migration.enabled":          true,
		"migration.destination":      "",
		"migration.max_tries":        5,
		"migration.initial_interval": 500 * time.Millisecond,
		"migration.max_interval":     10 * time.Second,
		"migration.concurrency":      4,
		"migration.queue_size":       64,

		"archive.enabled":           false,
		"archive.postgres_url":      "",
		"archive.max_idle_conns":    10,
		"archive.max_open_conns":    50,
		"archive.conn_max_lifetime": time.Hour,

		"events.buffer_size":   256,
		"events.poll_interval": 250 * time.Millisecond,

		"authority.key_file": "",
		"authority.key":      "",
	}
}

// LoadConfig reads path (optional) and applies LAUNCHPAD_* overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	g := launchpad.GlobalConfig{
		InitialVirtualSol:   cfg.Protocol.InitialVirtualSol,
		InitialVirtualToken: cfg.Protocol.InitialVirtualToken,
		InitialRealToken:    cfg.Protocol.InitialRealToken,
		TokenTotalSupply:    cfg.Protocol.TokenTotalSupply,
		TradeFeeBps:         cfg.Protocol.TradeFeeBps,
		CreatorShareBps:     cfg.Protocol.CreatorShareBps,
		ReferralShareBps:    cfg.Protocol.ReferralShareBps,
		GraduationThreshold: cfg.Protocol.GraduationThreshold,
		Status:              launchpad.StatusRunning,
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	if cfg.Protocol.TokenDecimals > 18 {
		return errors.New("protocol: token_decimals must be at most 18")
	}
	if cfg.API.Enabled {
		if _, _, err := net.SplitHostPort(cfg.API.ListenAddr); err != nil {
			return fmt.Errorf("api: invalid listen_addr %q", cfg.API.ListenAddr)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.Archive.Enabled && !strings.HasPrefix(cfg.Archive.PostgresURL, "postgres") {
		return errors.New("archive: postgres_url must be a postgres:// DSN when the archive is enabled")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.API.MaxPageSize <= 0 {
		return errors.New("invalid api.max_page_size")
	}
	if cfg.Migration.MaxTries == 0 {
		return errors.New("invalid migration.max_tries")
	}
	if cfg.Migration.InitialInterval <= 0 || cfg.Migration.MaxInterval < cfg.Migration.InitialInterval {
		return errors.New("invalid migration backoff intervals")
	}
	if cfg.Migration.Concurrency <= 0 {
		return errors.New("invalid migration.concurrency")
	}
	if cfg.Migration.QueueSize <= 0 {
		return errors.New("invalid migration.queue_size")
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.New("invalid events.buffer_size")
	}
	if cfg.Events.PollInterval <= 0 {
		return errors.New("invalid events.poll_interval")
	}
	if cfg.Log.MaxSize <= 0 || cfg.Log.MaxAge < 0 || cfg.Log.MaxBackups < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}
