// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pumpfun-bot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-bot/internal/eventlistener"
)

const envPrefix = "PUMPFUN_BOT"

type BuyConfig struct {
	SolIn    float64 `mapstructure:"sol_in"`
	Slippage float64 `mapstructure:"slippage"`
}

type SellConfig struct {
	Percentage float64 `mapstructure:"percentage"`
	Slippage   float64 `mapstructure:"slippage"`
}

type ConfirmConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type WatcherConfig struct {
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	Commitment     string        `mapstructure:"commitment"`
}

type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	WebSocketURL string `mapstructure:"websocket_url"`
	PrivateKey   string `mapstructure:"private_key"`

	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
	SkipPreflight    bool   `mapstructure:"skip_preflight"`

	Buy     BuyConfig     `mapstructure:"buy"`
	Sell    SellConfig    `mapstructure:"sell"`
	Confirm ConfirmConfig `mapstructure:"confirm"`
	Watcher WatcherConfig `mapstructure:"watcher"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	// MetricsAddr включает /metrics у watcher'а, например ":9100"
	MetricsAddr string `mapstructure:"metrics_addr"`
	// EventsFile куда watcher дописывает события (.csv или JSON lines)
	EventsFile string `mapstructure:"events_file"`
}

const (
	DefaultRPCURL       = "https://api.mainnet-beta.solana.com"
	DefaultWebSocketURL = "wss://api.mainnet-beta.solana.com"
	DefaultSolIn        = 0.001
	DefaultSlippage     = 5.0
	DefaultPercentage   = 100.0
	DefaultLogFile      = "pumpfun-bot.log"
)

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"rpc_url":                 DefaultRPCURL,
		"websocket_url":           DefaultWebSocketURL,
		"private_key":             "",
		"compute_unit_limit":      pumpfun.DefaultComputeUnitLimit,
		"compute_unit_price":      pumpfun.DefaultComputeUnitPrice,
		"skip_preflight":          true,
		"buy.sol_in":              DefaultSolIn,
		"buy.slippage":            DefaultSlippage,
		"sell.percentage":         DefaultPercentage,
		"sell.slippage":           DefaultSlippage,
		"confirm.max_retries":     pumpfun.DefaultConfirmRetries,
		"confirm.retry_interval":  pumpfun.DefaultConfirmInterval,
		"watcher.reconnect_delay": eventlistener.DefaultReconnectDelay,
		"watcher.ping_interval":   eventlistener.DefaultPingInterval,
		"watcher.commitment":      eventlistener.DefaultCommitment,
		"debug_logging":           false,
		"log_file":                DefaultLogFile,
		"metrics_addr":            "",
		"events_file":             "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadConfig reads path (YAML or JSON) on top of the defaults. An empty path
// means defaults plus environment only. A .env file in the working directory is
// loaded first when present; PUMPFUN_BOT_* variables override the file.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)
	return &cfg, cfg.Validate()
}

// Validate проверяет URL и числовые параметры
func (c *Config) Validate() error {
	if err := validateURL(c.RPCURL, "http", "https"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if err := validateURL(c.WebSocketURL, "ws", "wss"); err != nil {
		return fmt.Errorf("invalid websocket_url: %w", err)
	}
	if c.Buy.SolIn < 0 {
		return errors.New("buy.sol_in must not be negative")
	}
	if c.Buy.Slippage < 0 || c.Buy.Slippage > 100 {
		return errors.New("buy.slippage must be within 0..100")
	}
	if c.Sell.Slippage < 0 || c.Sell.Slippage > 100 {
		return errors.New("sell.slippage must be within 0..100")
	}
	if c.Sell.Percentage < 1 || c.Sell.Percentage > 100 {
		return errors.New("sell.percentage must be within 1..100")
	}
	if c.Confirm.MaxRetries <= 0 {
		return errors.New("confirm.max_retries must be positive")
	}
	if c.Confirm.RetryInterval <= 0 {
		return errors.New("confirm.retry_interval must be positive")
	}
	if c.Watcher.ReconnectDelay <= 0 || c.Watcher.PingInterval <= 0 {
		return errors.New("watcher delays must be positive")
	}
	switch c.Watcher.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown watcher.commitment %q", c.Watcher.Commitment)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not allowed", parsed.Scheme)
}

// RequirePrivateKey используется командами, которые подписывают транзакции
func (c *Config) RequirePrivateKey() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("private_key is not set (config or %s_PRIVATE_KEY)", envPrefix)
	}
	return nil
}

func (c *Config) TraderConfig() pumpfun.TraderConfig {
	return pumpfun.TraderConfig{
		ComputeUnitLimit: c.ComputeUnitLimit,
		ComputeUnitPrice: c.ComputeUnitPrice,
		SkipPreflight:    c.SkipPreflight,
		ConfirmRetries:   c.Confirm.MaxRetries,
		ConfirmInterval:  c.Confirm.RetryInterval,
	}
}

func (c *Config) WatcherConfig() eventlistener.WatcherConfig {
	return eventlistener.WatcherConfig{
		ReconnectDelay: c.Watcher.ReconnectDelay,
		PingInterval:   c.Watcher.PingInterval,
		Commitment:     c.Watcher.Commitment,
	}
}
