// Package config loads the project configuration file.
//
// The configuration is resolved once by the CLI and passed explicitly to
// the store, mutation service, validator and index builder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reqtrack/internal/record"
)

// FileName is the default config file name, looked up under the root.
const FileName = "reqtrack.yaml"

// LockFileName is the advisory lock file created inside the data directory.
const LockFileName = ".reqtrack.lock"

// Config describes where canonical data lives and how tools behave.
type Config struct {
	// Root is the repository root. Relative directories resolve against it.
	Root string `yaml:"-"`

	// DataDir holds one JSON file per record family.
	DataDir string `yaml:"data_dir"`

	// ReportsDir receives read-side outputs such as the lookup index.
	ReportsDir string `yaml:"reports_dir"`

	// Lock enables an advisory file lock around each mutation.
	Lock bool `yaml:"lock"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default(root string) Config {
	if root == "" {
		root = "."
	}
	return Config{
		Root:       root,
		DataDir:    "data",
		ReportsDir: "reports",
		Lock:       true,
		LogLevel:   "info",
	}
}

// Load resolves the configuration for root.
//
// If path is empty, <root>/reqtrack.yaml is read when it exists and
// defaults are used otherwise. An explicit path must exist. Unknown keys
// are rejected.
func Load(root, path string) (Config, error) {
	cfg := Default(root)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Root, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Root = Default(root).Root

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if strings.TrimSpace(c.ReportsDir) == "" {
		return fmt.Errorf("reports_dir must not be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c Config) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Root, dir)
}

// DataPath is the absolute-or-root-relative data directory.
func (c Config) DataPath() string { return c.resolve(c.DataDir) }

// ReportsPath is the resolved reports directory.
func (c Config) ReportsPath() string { return c.resolve(c.ReportsDir) }

// FamilyPath is the data file for a family.
func (c Config) FamilyPath(f record.Family) string {
	return filepath.Join(c.DataPath(), f.FileName())
}

// LockPath is the advisory lock file.
func (c Config) LockPath() string {
	return filepath.Join(c.DataPath(), LockFileName)
}

// RootPath resolves a root-relative path such as an artifact doc_path.
func (c Config) RootPath(rel string) string { return c.resolve(rel) }

// ParseLevel maps a log_level string to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level %q must be one of debug, info, warn, error", s)
}
