// Package config loads the flowedit configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/layout"
	"github.com/dshills/flowedit/pkg/storage"
)

const (
	// EnvConfigDir overrides the default configuration directory
	EnvConfigDir = "FLOWEDIT_CONFIG_DIR"
	// EnvStorageBackend overrides storage.backend
	EnvStorageBackend = "FLOWEDIT_STORAGE_BACKEND"
	// EnvAutosave overrides editor.autosave.enabled (true/false)
	EnvAutosave = "FLOWEDIT_AUTOSAVE"

	// FileName is the configuration file inside the config directory
	FileName = "config.yaml"

	defaultDirName = ".flowedit"
	currentVersion = "1.0"
)

// Config is the contents of config.yaml
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Editor  EditorConfig  `yaml:"editor"`
	Layout  LayoutConfig  `yaml:"layout"`
	// Dictionary is an optional translation file; relative paths resolve
	// against the config directory
	Dictionary string `yaml:"dictionary,omitempty"`

	dir string
}

// StorageConfig selects the flow repository
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path is the flows root (filesystem) or database file (sqlite).
	// Empty means the config directory.
	Path string `yaml:"path,omitempty"`
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty"`
	DSN  string `yaml:"dsn,omitempty"`
	// PasswordCredential names a keyring entry holding the backend password
	PasswordCredential string `yaml:"password_credential,omitempty"`
}

// EditorConfig tunes the editor store
type EditorConfig struct {
	HistoryLimit int            `yaml:"history_limit"`
	Autosave     AutosaveConfig `yaml:"autosave"`
	SnapToGrid   bool           `yaml:"snap_to_grid"`
}

// AutosaveConfig controls the debounced autosaver
type AutosaveConfig struct {
	Enabled bool          `yaml:"enabled"`
	Delay   time.Duration `yaml:"delay"`
}

// LayoutConfig configures the layered layouter
type LayoutConfig struct {
	Direction  string  `yaml:"direction"`
	NodeWidth  float64 `yaml:"node_width"`
	NodeHeight float64 `yaml:"node_height"`
	RankSep    float64 `yaml:"rank_sep"`
	NodeSep    float64 `yaml:"node_sep"`
}

// Default returns the configuration written on first run.
//
// Defaults:
//   - storage: filesystem under the config directory
//   - editor: 100 undo steps, autosave on after 3s, snap to a 20px grid
//   - layout: top to bottom, 200x100 nodes, 50px spacing
func Default() *Config {
	return &Config{
		Version: currentVersion,
		Storage: StorageConfig{Backend: storage.BackendFilesystem},
		Editor: EditorConfig{
			HistoryLimit: editor.DefaultHistoryLimit,
			Autosave: AutosaveConfig{
				Enabled: true,
				Delay:   editor.DefaultAutosaveDelay,
			},
			SnapToGrid: true,
		},
		Layout: LayoutConfig{
			Direction:  string(layout.TopBottom),
			NodeWidth:  layout.DefaultNodeWidth,
			NodeHeight: layout.DefaultNodeHeight,
			RankSep:    layout.DefaultRankSep,
			NodeSep:    layout.DefaultNodeSep,
		},
	}
}

// ResolveDir picks the configuration directory.
//
// Precedence (highest to lowest):
//  1. flagDir (--config-dir)
//  2. FLOWEDIT_CONFIG_DIR
//  3. ~/.flowedit
func ResolveDir(flagDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if envDir := os.Getenv(EnvConfigDir); envDir != "" {
		return envDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultDirName), nil
}

// Load reads <dir>/config.yaml, creating the directory and a default file
// when missing. Fields absent from the file keep their defaults; environment
// overrides apply last.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.write(path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.dir = dir
	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to <dir>/config.yaml
func (c *Config) Save() error {
	if c.dir == "" {
		return errors.New("config has no directory")
	}
	return c.write(filepath.Join(c.dir, FileName))
}

func (c *Config) write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if backend := os.Getenv(EnvStorageBackend); backend != "" {
		c.Storage.Backend = strings.ToLower(strings.TrimSpace(backend))
	}
	if v := os.Getenv(EnvAutosave); v != "" {
		// Unparseable values keep the file setting
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Editor.Autosave.Enabled = enabled
		}
	}
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Editor.HistoryLimit == 0 {
		c.Editor.HistoryLimit = def.Editor.HistoryLimit
	}
	if c.Editor.Autosave.Delay == 0 {
		c.Editor.Autosave.Delay = def.Editor.Autosave.Delay
	}
	if c.Layout.Direction == "" {
		c.Layout.Direction = def.Layout.Direction
	}
	if c.Layout.NodeWidth == 0 {
		c.Layout.NodeWidth = def.Layout.NodeWidth
	}
	if c.Layout.NodeHeight == 0 {
		c.Layout.NodeHeight = def.Layout.NodeHeight
	}
	if c.Layout.RankSep == 0 {
		c.Layout.RankSep = def.Layout.RankSep
	}
	if c.Layout.NodeSep == 0 {
		c.Layout.NodeSep = def.Layout.NodeSep
	}
}

// Validate checks the configuration.
//
// Returns error if:
//   - the storage backend is unknown
//   - redis has no address or postgres has no DSN
//   - history limit or autosave delay is negative
//   - the layout direction is not TB/LR or a dimension is negative
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendFilesystem, storage.BackendSQLite, storage.BackendMemory:
	case storage.BackendRedis:
		if c.Storage.Addr == "" {
			return errors.New("storage.addr is required for the redis backend")
		}
	case storage.BackendPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Editor.HistoryLimit < 0 {
		return fmt.Errorf("editor.history_limit must not be negative: %d", c.Editor.HistoryLimit)
	}
	if c.Editor.Autosave.Delay < 0 {
		return fmt.Errorf("editor.autosave.delay must not be negative: %s", c.Editor.Autosave.Delay)
	}

	if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
		return fmt.Errorf("layout.direction: %w", err)
	}
	if c.Layout.NodeWidth < 0 || c.Layout.NodeHeight < 0 || c.Layout.RankSep < 0 || c.Layout.NodeSep < 0 {
		return errors.New("layout dimensions must not be negative")
	}
	return nil
}

// Dir returns the directory the configuration was loaded from
func (c *Config) Dir() string {
	return c.dir
}

// StoragePath is Storage.Path resolved against the config directory
func (c *Config) StoragePath() string {
	return c.resolve(c.Storage.Path)
}

// DictionaryPath is Dictionary resolved against the config directory, or
// empty when no dictionary is configured
func (c *Config) DictionaryPath() string {
	if c.Dictionary == "" {
		return ""
	}
	return c.resolve(c.Dictionary)
}

func (c *Config) resolve(p string) string {
	if p == "" {
		return c.dir
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// StorageOptions returns the repository options; password is the resolved
// backend credential
func (c *Config) StorageOptions(password string, logger *slog.Logger) storage.Options {
	return storage.Options{
		Backend:  c.Storage.Backend,
		Path:     c.StoragePath(),
		Addr:     c.Storage.Addr,
		DB:       c.Storage.DB,
		DSN:      c.Storage.DSN,
		Password: password,
		Logger:   logger,
	}
}

// Layouter returns the layered layouter described by the layout section
func (c *Config) Layouter() *layout.Layered {
	return &layout.Layered{
		NodeWidth:  c.Layout.NodeWidth,
		NodeHeight: c.Layout.NodeHeight,
		RankSep:    c.Layout.RankSep,
		NodeSep:    c.Layout.NodeSep,
	}
}

// Direction returns the configured layout direction
func (c *Config) Direction() layout.Direction {
	dir, err := layout.ParseDirection(c.Layout.Direction)
	if err != nil {
		return layout.TopBottom
	}
	return dir
}
