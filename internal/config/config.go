// Package config provides configuration helpers for the perception commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// Default server configuration.
const (
	DefaultListenAddr  = ":8080"
	DefaultJournalPath = "cockpit.db"
	DefaultLogLevel    = "info"
)

// ListenAddr returns the server address from LISTEN_ADDR env var.
// Falls back to the provided default if not set.
func ListenAddr(defaultAddr string) string {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		return addr
	}
	return defaultAddr
}

// JournalPath returns the SQLite journal path from JOURNAL_PATH env var or default.
// "off" disables the journal.
func JournalPath() string {
	if p := os.Getenv("JOURNAL_PATH"); p != "" {
		return p
	}
	return DefaultJournalPath
}

// LogLevel returns the log level from LOG_LEVEL env var or default.
func LogLevel() string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// PerceptionPath returns the engine config file from PERCEPTION_CONFIG env var.
// Empty means built-in defaults.
func PerceptionPath() string {
	return os.Getenv("PERCEPTION_CONFIG")
}

// LoadPerception reads a YAML file and overlays it on perception.DefaultConfig.
// Fields missing from the file keep their defaults. An empty path returns the
// defaults. The result is validated.
func LoadPerception(path string) (perception.Config, error) {
	cfg := perception.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return perception.Config{}, fmt.Errorf("read perception config: %w", err)
	}
	return ParsePerception(data)
}

// ParsePerception overlays YAML data on perception.DefaultConfig and validates it.
func ParsePerception(data []byte) (perception.Config, error) {
	cfg := perception.DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return perception.Config{}, fmt.Errorf("parse perception config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return perception.Config{}, err
	}
	return cfg, nil
}
