// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList            []string `mapstructure:"rpc_list"`
	JupiterAPIURL      string   `mapstructure:"jupiter_api_url"`
	JupiterTokenList   string   `mapstructure:"jupiter_token_list_url"`
	MonitorInterval    int      `mapstructure:"monitor_interval"`     // ms between ticks
	RateLimitRequests  int      `mapstructure:"rate_limit_requests"`  // per window
	RateLimitWindow    int      `mapstructure:"rate_limit_window"`    // ms
	CacheTTL           int      `mapstructure:"cache_ttl"`            // ms
	MinLiquidityUSD    float64  `mapstructure:"min_liquidity_usd"`
	MinVolume24hUSD    float64  `mapstructure:"min_volume_24h_usd"`
	MaxPriceImpact     float64  `mapstructure:"max_price_impact"`     // percent
	MinProfitThreshold float64  `mapstructure:"min_profit_threshold"` // percent
	IPCSocketPath      string   `mapstructure:"ipc_socket_path"`
	IPCTimeout         int      `mapstructure:"ipc_timeout"` // ms per call
	WebsocketAddr      string   `mapstructure:"websocket_addr"`
	PostgresURL        string   `mapstructure:"postgres_url"`
	StrategiesFile     string   `mapstructure:"strategies_file"`
	ExportDir          string   `mapstructure:"export_dir"` // empty disables shutdown export
	DebugLogging       bool     `mapstructure:"debug_logging"`
}

const (
	DefaultMonitorInterval    = 1000
	DefaultRateLimitRequests  = 50
	DefaultRateLimitWindow    = 60_000
	DefaultCacheTTL           = 10_000
	DefaultMinLiquidityUSD    = 1000.0
	DefaultMinVolume24hUSD    = 5000.0
	DefaultMaxPriceImpact     = 2.0
	DefaultMinProfitThreshold = 0.5
	DefaultIPCSocketPath      = "/tmp/trading_bot.sock"
	DefaultIPCTimeout         = 5000
	DefaultJupiterAPIURL      = "https://quote-api.jup.ag/v6"
	DefaultJupiterTokenList   = "https://token.jup.ag/all"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"monitor_interval":       DefaultMonitorInterval,
		"rate_limit_requests":    DefaultRateLimitRequests,
		"rate_limit_window":      DefaultRateLimitWindow,
		"cache_ttl":              DefaultCacheTTL,
		"min_liquidity_usd":      DefaultMinLiquidityUSD,
		"min_volume_24h_usd":     DefaultMinVolume24hUSD,
		"max_price_impact":       DefaultMaxPriceImpact,
		"min_profit_threshold":   DefaultMinProfitThreshold,
		"ipc_socket_path":        DefaultIPCSocketPath,
		"ipc_timeout":            DefaultIPCTimeout,
		"jupiter_api_url":        DefaultJupiterAPIURL,
		"jupiter_token_list_url": DefaultJupiterTokenList,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if err := validateURLWithCache(cfg.JupiterAPIURL, "http"); err != nil {
		return errors.New("invalid Jupiter API URL")
	}
	if cfg.IPCSocketPath == "" {
		return errors.New("missing ipc_socket_path")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MonitorInterval <= 0 {
		return errors.New("invalid monitor_interval")
	}
	if cfg.RateLimitRequests <= 0 {
		return errors.New("invalid rate_limit_requests")
	}
	if cfg.RateLimitWindow <= 0 {
		return errors.New("invalid rate_limit_window")
	}
	if cfg.CacheTTL <= 0 {
		return errors.New("invalid cache_ttl")
	}
	if cfg.IPCTimeout <= 0 {
		return errors.New("invalid ipc_timeout")
	}
	if cfg.MinLiquidityUSD < 0 || cfg.MinVolume24hUSD < 0 {
		return errors.New("invalid analyzer minimums")
	}
	if cfg.MaxPriceImpact <= 0 {
		return errors.New("invalid max_price_impact")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SNIPING_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envSocket := v.GetString("IPC_SOCKET_PATH")
	if envSocket != "" {
		cfg.IPCSocketPath = envSocket
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
