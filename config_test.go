//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseConfig(t *testing.T) {
	t.Setenv(bindings.EnvLibraryPath, "")
	cfg, err := ParseConfig([]byte(`
library_path: /opt/ffmpeg/lib
log_level: debug
native_log_level: warning
forward_native_logs: true
io:
  buffer_size: 64KiB
  call_timeout: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg/lib", cfg.LibraryPath)
	assert.Equal(t, LogLevel(logger.LevelDebug), cfg.LogLevel)
	assert.Equal(t, LogLevel(logger.LevelWarning), cfg.NativeLogLevel)
	assert.True(t, cfg.ForwardNativeLogs)
	assert.Equal(t, ByteSize(64*1024), cfg.IO.BufferSize)
	assert.Equal(t, 2*time.Second, cfg.IO.CallTimeout)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv(bindings.EnvLibraryPath, "")
	cfg, err := ParseConfig([]byte("io:\n  buffer_size: 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LogLevel, cfg.LogLevel)
	assert.Equal(t, ByteSize(4096), cfg.IO.BufferSize)
	assert.Equal(t, 4096, cfg.ioBufferSize())

	assert.Equal(t, defaultIOBufferSize, Config{}.ioBufferSize())
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("log_level: loud\n"))
	assert.Error(t, err)
	_, err = ParseConfig([]byte("io:\n  buffer_size: lots\n"))
	assert.Error(t, err)
	_, err = ParseConfig([]byte("io: [\n"))
	assert.Error(t, err)
}

func TestConfigEnvOverridesLibraryPath(t *testing.T) {
	t.Setenv(bindings.EnvLibraryPath, "/from/env")
	cfg, err := ParseConfig([]byte("library_path: /from/file\n"))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.LibraryPath)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(bindings.EnvLibraryPath, "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "avbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: trace\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, LogLevel(logger.LevelTrace), cfg.LogLevel)
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IO.BufferSize = 1 << 20
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "buffer_size: 1.0 MiB")
	assert.Contains(t, string(data), "log_level: warning")

	t.Setenv(bindings.EnvLibraryPath, "")
	back, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
