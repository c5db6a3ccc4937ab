package config

import (
	"log/slog"
	"os"

	"github.com/getmockd/mocknet/pkg/logging"
)

// DefaultHistorySize is the number of resolutions kept when none is
// configured.
const DefaultHistorySize = 1000

// Config holds engine settings.
type Config struct {
	// Network lets unmatched requests reach the real network.
	Network bool `yaml:"network" json:"network"`

	// NetworkHosts restricts network mode to these hosts. Entries may be
	// globs such as "*.example.com". Empty means every host.
	NetworkHosts []string `yaml:"networkHosts,omitempty" json:"networkHosts,omitempty"`

	// AllowPendingMocks suppresses the pending-mock check at scope end.
	AllowPendingMocks bool `yaml:"allowPendingMocks" json:"allowPendingMocks"`

	// HistorySize bounds the resolution history.
	HistorySize int `yaml:"historySize,omitempty" json:"historySize,omitempty"`

	// Log configures operational logging.
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty"`

	// MockFiles lists mock files or ** globs registered on every activation.
	MockFiles []string `yaml:"mocks,omitempty" json:"mocks,omitempty"`

	// BaseDir resolves relative MockFiles entries. LoadFile sets it to the
	// directory of the config file.
	BaseDir string `yaml:"-" json:"-"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Empty disables logging.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{HistorySize: DefaultHistorySize}
}

// Logger builds the operational logger described by the config. An empty
// level yields a no-op logger so tests stay quiet unless asked otherwise.
func (c *Config) Logger() *slog.Logger {
	if c == nil || c.Log.Level == "" {
		return logging.Nop()
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Format: logging.ParseFormat(c.Log.Format),
		Output: os.Stderr,
	})
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.NetworkHosts = append([]string(nil), c.NetworkHosts...)
	out.MockFiles = append([]string(nil), c.MockFiles...)
	return &out
}
