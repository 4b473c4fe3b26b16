package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresEndpoints(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AMM_SWAP_RPC_URL", "")
	t.Setenv("AMM_SWAP_AMM_ADDRESS", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AMM_SWAP_RPC_URL", "http://localhost:8545")
	t.Setenv("AMM_SWAP_AMM_ADDRESS", "0x1111111111111111111111111111111111111111")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8545", cfg.RPCURL)
	require.Equal(t, int64(1), cfg.ChainID)
	require.Equal(t, 20, cfg.MaxTokens)
	require.Equal(t, 0.5, cfg.SlippagePercent)
	require.Equal(t, 30, cfg.DeadlineMinutes)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.TokenListURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AMM_SWAP_RPC_URL", "http://localhost:8545")
	t.Setenv("AMM_SWAP_AMM_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("AMM_SWAP_CHAIN_ID", "5")
	t.Setenv("AMM_SWAP_SLIPPAGE_PERCENT", "1.25")
	t.Setenv("AMM_SWAP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, int64(5), cfg.ChainID)
	require.Equal(t, 1.25, cfg.SlippagePercent)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestSetAndGet(t *testing.T) {
	prev := globalConfig
	defer Set(prev)

	want := &Config{RPCURL: "http://example.invalid"}
	Set(want)
	require.Same(t, want, Get())
}
