package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Network)
	assert.False(t, cfg.AllowPendingMocks)
	assert.Equal(t, DefaultHistorySize, cfg.HistorySize)
	assert.NotNil(t, cfg.Logger())
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvNetwork, "true")
	t.Setenv(EnvNetworkHosts, "localhost, *.internal ,")
	t.Setenv(EnvAllowPending, "yes")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvMocks, "a.yaml,mocks/**/*.yaml")
	t.Setenv(EnvHistorySize, "42")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Network)
	assert.Equal(t, []string{"localhost", "*.internal"}, cfg.NetworkHosts)
	assert.True(t, cfg.AllowPendingMocks)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"a.yaml", "mocks/**/*.yaml"}, cfg.MockFiles)
	assert.Equal(t, 42, cfg.HistorySize)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "network", key: EnvNetwork, value: "maybe"},
		{name: "allow pending", key: EnvAllowPending, value: "2"},
		{name: "history size", key: EnvHistorySize, value: "-1"},
		{name: "history size not a number", key: EnvHistorySize, value: "lots"},
		{name: "log level", key: EnvLogLevel, value: "loud"},
		{name: "log format", key: EnvLogFormat, value: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
network: true
networkHosts: ["localhost"]
allowPendingMocks: true
historySize: 10
log:
  level: warn
  format: text
mocks:
  - mocks/*.yaml
`))
	require.NoError(t, err)

	assert.True(t, cfg.Network)
	assert.Equal(t, []string{"localhost"}, cfg.NetworkHosts)
	assert.True(t, cfg.AllowPendingMocks)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"mocks/*.yaml"}, cfg.MockFiles)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("network: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalidYAML)

	_, err = Parse([]byte("unknownField: 1"))
	assert.ErrorIs(t, err, ErrInvalidYAML)

	_, err = Parse([]byte("historySize: -5"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte(`networkHosts: ["ok", " "]`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("log:\n  level: loud\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("log:\n  format: xml\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse([]byte("# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHistorySize, cfg.HistorySize)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mocknet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: ${MOCKNET_TEST_NETWORK:-false}\nhistorySize: 7\n"), 0o644))

	t.Setenv("MOCKNET_TEST_NETWORK", "true")
	t.Setenv(EnvHistorySize, "9")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Network)
	assert.Equal(t, 9, cfg.HistorySize, "environment overrides the file")
	assert.Equal(t, dir, cfg.BaseDir)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadFile(empty)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = LoadFile(dir)
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MOCKNET_TEST_HOST", "api.local")

	assert.Equal(t, "http://api.local/x", ExpandEnvVars("http://${MOCKNET_TEST_HOST}/x"))
	assert.Equal(t, "fallback", ExpandEnvVars("${MOCKNET_TEST_UNSET_VAR:-fallback}"))
	assert.Equal(t, "", ExpandEnvVars("${MOCKNET_TEST_UNSET_VAR}"))
	assert.Equal(t, "$NOT_BRACED", ExpandEnvVars("$NOT_BRACED"))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/abs/file.yaml", ResolvePath("/base", "/abs/file.yaml"))
	assert.Equal(t, filepath.Join("/base", "rel.yaml"), ResolvePath("/base", "rel.yaml"))
	assert.Equal(t, "rel.yaml", ResolvePath("", "rel.yaml"))
}

func TestClone(t *testing.T) {
	cfg := &Config{NetworkHosts: []string{"a"}, MockFiles: []string{"b"}}
	c := cfg.Clone()
	c.NetworkHosts[0] = "z"
	assert.Equal(t, "a", cfg.NetworkHosts[0])
	assert.Nil(t, (*Config)(nil).Clone())
}
