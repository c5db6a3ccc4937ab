package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/getmockd/mocknet/pkg/logging"
)

// Environment variable names
const (
	EnvNetwork      = "MOCKNET_NETWORK"
	EnvNetworkHosts = "MOCKNET_NETWORK_HOSTS"
	EnvAllowPending = "MOCKNET_ALLOW_PENDING"
	EnvLogLevel     = "MOCKNET_LOG_LEVEL"
	EnvLogFormat    = "MOCKNET_LOG_FORMAT"
	EnvMocks        = "MOCKNET_MOCKS"
	EnvHistorySize  = "MOCKNET_HISTORY_SIZE"
)

// FromEnv returns the default configuration with environment overrides
// applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the MOCKNET_* variables that are set.
// List variables are comma separated.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvNetwork); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNetwork, err)
		}
		cfg.Network = b
	}

	if v := os.Getenv(EnvNetworkHosts); v != "" {
		cfg.NetworkHosts = splitList(v)
	}

	if v := os.Getenv(EnvAllowPending); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAllowPending, err)
		}
		cfg.AllowPendingMocks = b
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		if _, err := logging.LookupLevel(v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvLogLevel, err)
		}
		cfg.Log.Level = v
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		if _, err := logging.LookupFormat(v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvLogFormat, err)
		}
		cfg.Log.Format = v
	}

	if v := os.Getenv(EnvMocks); v != "" {
		cfg.MockFiles = splitList(v)
	}

	if v := os.Getenv(EnvHistorySize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, EnvHistorySize, v)
		}
		cfg.HistorySize = n
	}

	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: invalid boolean %q", ErrInvalidConfig, v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
