// Package config loads the watcher's process configuration from the environment,
// falling back to a deployment-local .env file for any key still missing once the
// environment has been consulted.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	wErrors "github.com/algonius/chain-watcher/pkg/errors"
)

const defaultPollIntervalSecs = 10

// Config is the watcher's immutable-after-startup configuration.
type Config struct {
	EthRPCURL   string
	SolRPCURL   string
	RedisURL    string
	EthNetwork  string
	SolNetwork  string
	WatchedETH  []string
	WatchedSOL  []string
	PollSeconds int
	LogLevel    string
}

// requiredKeys are read from the environment (preferred) or the fallback dotfile;
// missing any of them is a fatal configuration error.
var requiredKeys = []string{
	"ETH_RPC_URL",
	"SOL_RPC_URL",
	"REDIS_URL",
	"ETH_NETWORK",
	"SOL_NETWORK",
}

// Load resolves configuration per the process environment first, loading envFile
// (typically ".env") only to fill keys still unset after the environment pass.
// logger may be nil in tests.
func Load(envFile string, logger *zap.Logger) (*Config, error) {
	env, err := loadEnvWithFallback(envFile, requiredKeys, logger)
	if err != nil {
		return nil, err
	}

	for _, key := range requiredKeys {
		if strings.TrimSpace(env[key]) == "" {
			return nil, wErrors.MissingRequiredFieldError(key)
		}
	}

	pollSeconds := defaultPollIntervalSecs
	if raw := strings.TrimSpace(env["POLL_INTERVAL_SECS"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, wErrors.ConfigError("POLL_INTERVAL_SECS", "must be a non-negative integer").WithDetails(err.Error())
		}
		if n < 0 {
			return nil, wErrors.ConfigError("POLL_INTERVAL_SECS", "must be a non-negative integer")
		}
		pollSeconds = n
	}

	cfg := &Config{
		EthRPCURL:   env["ETH_RPC_URL"],
		SolRPCURL:   env["SOL_RPC_URL"],
		RedisURL:    env["REDIS_URL"],
		EthNetwork:  env["ETH_NETWORK"],
		SolNetwork:  env["SOL_NETWORK"],
		WatchedETH:  splitAddressList(env["WATCHED_ADDRESSES_ETH"]),
		WatchedSOL:  splitAddressList(env["WATCHED_ADDRESSES_SOL"]),
		PollSeconds: pollSeconds,
		LogLevel:    env["LOG_LEVEL"],
	}

	return cfg, nil
}

// splitAddressList trims whitespace around each comma-separated entry; an empty
// or all-whitespace input yields an empty (not nil-with-one-entry) list.
func splitAddressList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvWithFallback reads every key of interest from the process environment,
// then — only if at least one required key is still missing — loads envFile and
// fills the gaps. Keys already present in the process environment are never
// overridden by the fallback file, matching the teacher's primary/fallback
// resolution order in LoadConfigWithFallback.
func loadEnvWithFallback(envFile string, keys []string, logger *zap.Logger) (map[string]string, error) {
	allKeys := append(append([]string{}, keys...), "WATCHED_ADDRESSES_ETH", "WATCHED_ADDRESSES_SOL", "POLL_INTERVAL_SECS", "LOG_LEVEL")

	env := make(map[string]string, len(allKeys))
	for _, k := range allKeys {
		v, _ := os.LookupEnv(k)
		env[k] = v
	}
	missing := false
	for _, k := range keys {
		if env[k] == "" {
			missing = true
		}
	}
	if !missing || envFile == "" {
		return env, nil
	}

	fallback, err := godotenv.Read(envFile)
	if err != nil {
		if logger != nil {
			logger.Warn("no fallback env file available, continuing with process environment only",
				zap.String("path", envFile), zap.Error(err))
		}
		return env, nil
	}

	for _, k := range allKeys {
		if env[k] == "" {
			if v, ok := fallback[k]; ok {
				env[k] = v
			}
		}
	}
	if logger != nil {
		logger.Info("filled missing configuration keys from fallback env file", zap.String("path", envFile))
	}
	return env, nil
}
