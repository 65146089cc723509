package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const (
	storageSQLite = "sqlite"
	storageFiles  = "files"
)

// Config holds the settings for every shannon command.
type Config struct {
	LogLevel         string `json:"log_level"`
	Storage          string `json:"storage"`
	DatabasePath     string `json:"database_path"`
	TablesDir        string `json:"tables_dir"`
	CorporaManifest  string `json:"corpora_manifest"`
	ApiAddr          string `json:"api_addr"`
	AnchorAttempts   int    `json:"anchor_attempts"`
	DefaultLength    int    `json:"default_length"`
	MaxLength        int    `json:"max_length"`
	StyleOrder       int    `json:"style_order"`
	StyleGranularity string `json:"style_granularity"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		Storage:          storageSQLite,
		DatabasePath:     "./data/shannon.db?_journal_mode=WAL&_busy_timeout=5000",
		TablesDir:        "./data/tables",
		CorporaManifest:  "./corpora.yaml",
		ApiAddr:          ":7280",
		AnchorAttempts:   10,
		DefaultLength:    50,
		MaxLength:        5000,
		StyleOrder:       2,
		StyleGranularity: "word",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case storageSQLite, storageFiles:
	default:
		return fmt.Errorf("invalid storage %q: want %q or %q", c.Storage, storageSQLite, storageFiles)
	}
	if c.StyleOrder < 1 || c.StyleOrder > 3 {
		return fmt.Errorf("invalid style_order %d: want 1, 2 or 3", c.StyleOrder)
	}
	if c.MaxLength < 1 {
		return fmt.Errorf("invalid max_length %d", c.MaxLength)
	}
	return nil
}

// logLevel maps the configured level name to a slog.Level, defaulting to info.
func (c *Config) logLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Manifest lists the corpora (one per style or author) shannon analyzes.
type Manifest struct {
	Corpora map[string]string `yaml:"corpora"`
}

// LoadManifest reads a YAML manifest mapping corpus names to text files.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpora manifest: %w", err)
	}
	var m Manifest
	if err = yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse corpora manifest: %w", err)
	}
	if len(m.Corpora) == 0 {
		return nil, fmt.Errorf("corpora manifest %s lists no corpora", path)
	}
	return &m, nil
}

// Names returns the corpus names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Corpora))
	for name := range m.Corpora {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
