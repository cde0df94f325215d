//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/obinnaokechukwu/avbridge/internal/bindings"
	"gopkg.in/yaml.v3"
)

// Config configures a Bridge.
type Config struct {
	// LibraryPath is searched for the FFmpeg libraries before the platform
	// defaults. AVBRIDGE_LIB_PATH overrides it.
	LibraryPath string `yaml:"library_path"`

	// LogLevel is used when the construction context carries no logger.
	LogLevel LogLevel `yaml:"log_level"`

	// NativeLogLevel is handed to av_log_set_level.
	NativeLogLevel LogLevel `yaml:"native_log_level"`

	// ForwardNativeLogs routes FFmpeg's own log lines into the bridge
	// logger. It needs the ffshim helper library.
	ForwardNativeLogs bool `yaml:"forward_native_logs"`

	IO IOConfig `yaml:"io"`
}

// IOConfig holds the defaults for custom I/O contexts.
type IOConfig struct {
	BufferSize  ByteSize      `yaml:"buffer_size"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

const defaultIOBufferSize = 32 * 1024

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		LogLevel:       LogLevel(logger.LevelWarning),
		NativeLogLevel: LogLevel(logger.LevelError),
		IO: IOConfig{
			BufferSize: defaultIOBufferSize,
		},
	}
}

// ParseConfig reads a YAML document on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}
	return ParseConfig(data)
}

func (cfg *Config) applyEnv() {
	if p := os.Getenv(bindings.EnvLibraryPath); p != "" {
		cfg.LibraryPath = p
	}
}

func (cfg Config) ioBufferSize() int {
	if cfg.IO.BufferSize <= 0 {
		return defaultIOBufferSize
	}
	return int(cfg.IO.BufferSize)
}

// ByteSize is a size in bytes that reads from YAML either as a number or
// as a human string such as "64KiB" or "1 MB".
type ByteSize uint64

func (s *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(text)
	if err != nil {
		return fmt.Errorf("byte size %q: %w", text, err)
	}
	*s = ByteSize(n)
	return nil
}

func (s ByteSize) MarshalYAML() (any, error) {
	return humanize.IBytes(uint64(s)), nil
}

func (s ByteSize) String() string { return humanize.IBytes(uint64(s)) }

// LogLevel is a go-belt logger level that reads from YAML by name
// ("error", "warning", "info", "debug", "trace").
type LogLevel logger.Level

func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	var level logger.Level
	if err := level.Set(text); err != nil {
		return fmt.Errorf("log level %q: %w", text, err)
	}
	*l = LogLevel(level)
	return nil
}

func (l LogLevel) MarshalYAML() (any, error) {
	return l.String(), nil
}

func (l LogLevel) String() string { return logger.Level(l).String() }
