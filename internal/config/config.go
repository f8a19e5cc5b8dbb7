// Package config loads per-repository settings from .tasks/config.toml
// (SPEC_FULL.md §11): storage backend selection, path overrides, default
// priority/actor, and custom status/type name lists (loaded and saved
// only; internal/types does not read them). Grounded on the teacher's cmd/bd/config.go and
// internal/config/local_config.go, which read .beads/config.yaml through
// viper; this module's on-disk format is TOML instead of YAML. Reads go
// through viper (matching the teacher's access pattern); Save writes a
// fresh config.toml with BurntSushi/toml directly, the same encoder used
// by internal/formula/parser.go in the teacher's tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Backend selects which storage.Store implementation a repository uses.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendDolt   Backend = "dolt"
)

// Config is the resolved settings for one repository's .tasks/ directory.
type Config struct {
	// Dir is the .tasks directory this config was loaded from (or would be
	// created in, if no config.toml exists yet).
	Dir string

	Backend Backend

	// DBPath overrides the default "<Dir>/tasks.db" location.
	DBPath string

	DefaultPriority string
	DefaultActor    string

	// CustomStatuses and CustomTaskTypes are the project-specific names
	// listed in config.toml. They are loaded and saved here only; the
	// Valid() checks in internal/types accept the built-in names alone.
	CustomStatuses  []string
	CustomTaskTypes []string
}

func defaults(dir string) *Config {
	return &Config{
		Dir:             dir,
		Backend:         BackendSQLite,
		DBPath:          filepath.Join(dir, "tasks.db"),
		DefaultPriority: "medium",
		DefaultActor:    "agent",
	}
}

// Load reads .tasks/config.toml under dir, applying defaults for any
// unset field. A missing config.toml is not an error: Load returns the
// defaults, mirroring LoadLocalConfig's "return empty, not nil" contract.
func Load(dir string) (*Config, error) {
	cfg := defaults(dir)
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if backend := v.GetString("backend"); backend != "" {
		switch Backend(backend) {
		case BackendSQLite, BackendDolt:
			cfg.Backend = Backend(backend)
		default:
			return nil, fmt.Errorf("%s: invalid backend %q (want sqlite or dolt)", path, backend)
		}
	}
	if dbPath := v.GetString("db_path"); dbPath != "" {
		if filepath.IsAbs(dbPath) {
			cfg.DBPath = dbPath
		} else {
			cfg.DBPath = filepath.Join(dir, dbPath)
		}
	} else if cfg.Backend == BackendDolt {
		// Dolt wants a directory, not the sqlite default's file path.
		cfg.DBPath = filepath.Join(dir, "dolt")
	}
	if p := v.GetString("default_priority"); p != "" {
		cfg.DefaultPriority = p
	}
	if a := v.GetString("default_actor"); a != "" {
		cfg.DefaultActor = a
	}
	cfg.CustomStatuses = splitNonEmpty(v.GetString("custom_statuses"))
	cfg.CustomTaskTypes = splitNonEmpty(v.GetString("custom_task_types"))

	return cfg, nil
}

// tomlDoc is the on-disk shape of config.toml, separate from Config so
// Dir (resolved at load time, not a file setting) never round-trips.
type tomlDoc struct {
	Backend         string `toml:"backend,omitempty"`
	DBPath          string `toml:"db_path,omitempty"`
	DefaultPriority string `toml:"default_priority,omitempty"`
	DefaultActor    string `toml:"default_actor,omitempty"`
	CustomStatuses  string `toml:"custom_statuses,omitempty"`
	CustomTaskTypes string `toml:"custom_task_types,omitempty"`
}

// Save writes cfg to <cfg.Dir>/config.toml, creating the directory if
// necessary. DBPath is stored relative to Dir when possible, matching the
// relative form Load accepts.
func Save(cfg *Config) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.Dir, err)
	}
	dbPath := cfg.DBPath
	if rel, err := filepath.Rel(cfg.Dir, cfg.DBPath); err == nil && !strings.HasPrefix(rel, "..") {
		dbPath = rel
	}
	doc := tomlDoc{
		Backend:         string(cfg.Backend),
		DBPath:          dbPath,
		DefaultPriority: cfg.DefaultPriority,
		DefaultActor:    cfg.DefaultActor,
		CustomStatuses:  strings.Join(cfg.CustomStatuses, ", "),
		CustomTaskTypes: strings.Join(cfg.CustomTaskTypes, ", "),
	}

	f, err := os.Create(filepath.Join(cfg.Dir, "config.toml"))
	if err != nil {
		return fmt.Errorf("create config.toml: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}

// FindRepoRoot walks up from startPath looking for a .tasks directory,
// stopping at the filesystem root or the system temp directory (so a
// throwaway /tmp sandbox never picks up an unrelated .tasks). Returns ""
// if none is found.
func FindRepoRoot(startPath string) string {
	path := startPath
	tempDir := filepath.Clean(os.TempDir())

	for {
		clean := filepath.Clean(path)
		if clean == tempDir {
			return ""
		}
		candidate := filepath.Join(path, ".tasks")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
	}
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
