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
	RPCList           []string `mapstructure:"rpc_list"`
	WebSocketURL      string   `mapstructure:"websocket_url"`
	JitoBlockEngine   string   `mapstructure:"jito_block_engine_url"`
	JitoTipLamports   uint64   `mapstructure:"jito_tip_lamports"`
	KeystorePath      string   `mapstructure:"keystore_path"`
	RecoveryDir       string   `mapstructure:"recovery_dir"`
	MonitorDelay      int      `mapstructure:"monitor_delay"`
	RPCDelay          int      `mapstructure:"rpc_delay"`
	PriceDelay        int      `mapstructure:"price_delay"`
	BatchDelay        int      `mapstructure:"batch_delay"`
	Retries           int      `mapstructure:"retries"`
	Workers           int      `mapstructure:"workers"`
	MaxWalletsPerTx   int      `mapstructure:"max_wallets_per_tx"`
	MaxTxsPerBundle   int      `mapstructure:"max_txs_per_bundle"`
	SpiderReserve     uint64   `mapstructure:"spider_reserve_lamports"`
	DebugLogging      bool     `mapstructure:"debug_logging"`
	ConfirmCommitment string   `mapstructure:"confirm_commitment"`
}

const (
	DefaultMonitorDelay    = 1000
	DefaultRPCDelay        = 100
	DefaultPriceDelay      = 500
	DefaultBatchDelay      = 250
	DefaultWorkers         = 5
	DefaultRetries         = 3
	DefaultMaxWalletsPerTx = 5
	DefaultMaxTxsPerBundle = 5
	DefaultJitoTipLamports = 100_000
	DefaultSpiderReserve   = 3_000_000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"monitor_delay":           DefaultMonitorDelay,
		"rpc_delay":               DefaultRPCDelay,
		"price_delay":             DefaultPriceDelay,
		"batch_delay":             DefaultBatchDelay,
		"workers":                 DefaultWorkers,
		"retries":                 DefaultRetries,
		"max_wallets_per_tx":      DefaultMaxWalletsPerTx,
		"max_txs_per_bundle":      DefaultMaxTxsPerBundle,
		"jito_tip_lamports":       DefaultJitoTipLamports,
		"spider_reserve_lamports": DefaultSpiderReserve,
		"keystore_path":           "wallets.csv",
		"recovery_dir":            "recovery",
		"confirm_commitment":      "confirmed",
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
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if cfg.JitoBlockEngine != "" {
		if err := validateURLWithCache(cfg.JitoBlockEngine, "http"); err != nil {
			return errors.New("invalid block engine URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MonitorDelay <= 0 {
		return errors.New("invalid monitor_delay")
	}
	if cfg.RPCDelay <= 0 {
		return errors.New("invalid rpc_delay")
	}
	if cfg.PriceDelay <= 0 {
		return errors.New("invalid price_delay")
	}
	if cfg.BatchDelay < 0 {
		return errors.New("invalid batch_delay")
	}
	if cfg.Workers < 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.MaxWalletsPerTx <= 0 || cfg.MaxWalletsPerTx > 5 {
		return errors.New("max_wallets_per_tx must be between 1 and 5")
	}
	if cfg.MaxTxsPerBundle <= 0 || cfg.MaxTxsPerBundle > 5 {
		return errors.New("max_txs_per_bundle must be between 1 and 5")
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
	v.SetEnvPrefix("SWARM_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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
