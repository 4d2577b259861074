// Package config loads runtime configuration: viper defaults plus
// environment overrides, with an optional .env file loaded first via
// godotenv.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the balance-watcher service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig controls the HTTP/SSE listener.
type ServerConfig struct {
	HTTPBind       string   `mapstructure:"http_bind"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ChainConfig controls the watcher's chain behavior.
type ChainConfig struct {
	MulticallAddress      string        `mapstructure:"multicall_address"`
	SnapshotInterval      time.Duration `mapstructure:"snapshot_interval"`
	MaxWatchedTokensLimit int           `mapstructure:"max_watched_tokens_limit"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
	RPCAPIKey             string        `mapstructure:"rpc_api_key"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// Load reads configuration from an optional .env file, then environment
// variables prefixed BALANCES_, falling back to the defaults below.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.http_bind", "0.0.0.0:8080")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("chain.multicall_address", "0xcA11bde05977b3631167028862bE2a173976CA11")
	v.SetDefault("chain.snapshot_interval", 60*time.Second)
	v.SetDefault("chain.max_watched_tokens_limit", 10000)
	v.SetDefault("chain.session_ttl", 60*time.Second)
	v.SetDefault("chain.rpc_api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetConfigName("balances-watcher")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("BALANCES")
	// Nested keys use dots; env vars use underscores. Without this
	// replacer, BALANCES_CHAIN_RPC_API_KEY would never bind to
	// chain.rpc_api_key.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Chain.RPCAPIKey == "" {
		return Config{}, fmt.Errorf("missing required RPC credential: chain.rpc_api_key / BALANCES_CHAIN_RPC_API_KEY")
	}

	return cfg, nil
}
