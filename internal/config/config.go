// Package config loads the kette command's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Filename is the config file looked up when -config is not given.
const Filename = "kette.yml"

const maxConfigSize = 1024 * 1024

var ErrInvalidConfig = errors.New("invalid config")

// Config holds command settings. Flags given on the command line override
// the file.
type Config struct {
	LogLevel string `yaml:"log_level"`
	DumpTree bool   `yaml:"dump_tree"`
	DumpCode bool   `yaml:"dump_code"`
	Prompt   string `yaml:"prompt"`
	// MaxStackDepth bounds the evaluation stack of compiled programs. Zero
	// keeps the compiler default.
	MaxStackDepth int `yaml:"max_stack_depth"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		LogLevel: "info",
		Prompt:   "kette> ",
	}
}

// Load reads the file at path on top of Default. A missing file is not an
// error when missingOK is set.
func Load(path string, missingOK bool) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if missingOK && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("%w: %s is %d bytes", ErrInvalidConfig, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML text on top of Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	if cfg.MaxStackDepth < 0 {
		return fmt.Errorf("%w: max_stack_depth %d is negative", ErrInvalidConfig, cfg.MaxStackDepth)
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

// Write encodes the config as YAML.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
