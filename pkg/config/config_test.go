package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ETH_RPC_URL", "wss://eth.example/ws")
	t.Setenv("SOL_RPC_URL", "https://sol.example")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ETH_NETWORK", "mainnet")
	t.Setenv("SOL_NETWORK", "mainnet-beta")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultPollIntervalSecs, cfg.PollSeconds)
	assert.Empty(t, cfg.WatchedETH)
	assert.Empty(t, cfg.WatchedSOL)
}

func TestLoad_MissingRequiredKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ETH_RPC_URL", "")

	_, err := Load("", nil)
	require.Error(t, err)
}

func TestLoad_NonNumericPollInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL_SECS", "not-a-number")

	_, err := Load("", nil)
	require.Error(t, err)
}

func TestLoad_WatchedAddressLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WATCHED_ADDRESSES_ETH", " 0xabc , 0xdef ,,")
	t.Setenv("WATCHED_ADDRESSES_SOL", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.WatchedETH)
	assert.Empty(t, cfg.WatchedSOL)
}

func TestLoad_CustomPollInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL_SECS", "3")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PollSeconds)
}
