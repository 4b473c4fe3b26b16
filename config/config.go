package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	RPCURL          string
	AMMAddress      string
	ChainID         int64
	TokenListURL    string
	MaxTokens       int
	PrivateKey      string
	SlippagePercent float64
	DeadlineMinutes int
	LogLevel        string
	MetricsAddr     string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".amm-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("chain_id", 1)
	viper.SetDefault("token_list_url", "https://messari.io/tokenlist/messari-verified.json")
	viper.SetDefault("max_tokens", 20)
	viper.SetDefault("slippage_percent", 0.5)
	viper.SetDefault("deadline_minutes", 30)
	viper.SetDefault("log_level", "info")

	// Read from environment variables
	viper.SetEnvPrefix("AMM_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	// Create config struct
	cfg := &Config{
		RPCURL:          viper.GetString("rpc_url"),
		AMMAddress:      viper.GetString("amm_address"),
		ChainID:         viper.GetInt64("chain_id"),
		TokenListURL:    viper.GetString("token_list_url"),
		MaxTokens:       viper.GetInt("max_tokens"),
		PrivateKey:      viper.GetString("private_key"),
		SlippagePercent: viper.GetFloat64("slippage_percent"),
		DeadlineMinutes: viper.GetInt("deadline_minutes"),
		LogLevel:        viper.GetString("log_level"),
		MetricsAddr:     viper.GetString("metrics_addr"),
	}

	// The RPC endpoint and pool address are the only hard requirements
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not found. Please set AMM_SWAP_RPC_URL environment variable or create a .amm-swap.yaml config file")
	}
	if cfg.AMMAddress == "" {
		return nil, fmt.Errorf("AMM address not found. Please set AMM_SWAP_AMM_ADDRESS environment variable or create a .amm-swap.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
