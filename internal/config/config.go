// Package config handles runtime configuration and the .loom directory
// structure. Every project that uses loom gets a .loom/ folder holding its
// capability store, templates, logs and run history.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoomDir is the name of the directory created in each project root.
const LoomDir = ".loom"

// Config is the resolved runtime configuration. Values come from defaults,
// then .loom/config.yaml, then LOOM_* environment variables, later sources
// winning.
type Config struct {
	Store     StoreConfig   `koanf:"store"`
	Templates string        `koanf:"templates"`
	History   HistoryConfig `koanf:"history"`
	Log       LogConfig     `koanf:"log"`
	Compose   ComposeConfig `koanf:"compose"`

	// ProjectDir is the directory the CLI was invoked from.
	ProjectDir string `koanf:"-"`
}

// StoreConfig locates the capability store.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// HistoryConfig locates the run history database.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

// LogConfig locates the logbook file.
type LogConfig struct {
	Path string `koanf:"path"`
}

// ComposeConfig carries composition defaults.
type ComposeConfig struct {
	// Strategy is the conflict resolution used when a manifest leaves
	// conflict_resolution unset on the command line.
	Strategy string `koanf:"strategy"`
}

// Load resolves configuration for a project directory.
func Load(projectDir string) (*Config, error) {
	loomDir := filepath.Join(projectDir, LoomDir)
	k := koanf.New(".")

	k.Set("store.path", filepath.Join(loomDir, "capabilities"))
	k.Set("templates", filepath.Join(loomDir, "templates"))
	k.Set("history.path", filepath.Join(loomDir, "history.db"))
	k.Set("log.path", filepath.Join(loomDir, "logs", "loom.log"))
	k.Set("compose.strategy", "error")

	path := filepath.Join(loomDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// LOOM_COMPOSE_STRATEGY -> compose.strategy
	if err := k.Load(env.Provider("LOOM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "LOOM_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ProjectDir = projectDir
	return &cfg, nil
}

// InitWorkspace creates the .loom directory structure for a project. Safe
// to call repeatedly.
func InitWorkspace(projectDir string) error {
	loomDir := filepath.Join(projectDir, LoomDir)
	dirs := []string{
		filepath.Join(loomDir, "capabilities"),
		filepath.Join(loomDir, "templates"),
		filepath.Join(loomDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
