// Package config reads and writes the optional metafix TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"metafix/internal/fixer"
)

// Config represents the main configuration for metafix.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Folders    FoldersConfig    `toml:"folders"`
	Media      MediaConfig      `toml:"media"`
	Tool       ToolConfig       `toml:"tool"`
	Journal    JournalConfig    `toml:"journal"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// FoldersConfig names the output folders created under the source tree.
type FoldersConfig struct {
	Quarantine string `toml:"quarantine"`
	Archive    string `toml:"archive"`
}

// MediaConfig lists the recognized media extensions. Order matters:
// extensions are tried in the order given.
type MediaConfig struct {
	Extensions           []string `toml:"extensions"`
	VideoExtensions      []string `toml:"video_extensions"`
	MislabeledExtensions []string `toml:"mislabeled_extensions"`
	DuplicateMarkers     []string `toml:"duplicate_markers"`
}

// ToolConfig controls how the external metadata tool is launched.
type ToolConfig struct {
	Interpreter   string `toml:"interpreter"`     // used for script distributions that ship a lib dir
	StayOpenProbe bool   `toml:"stay_open_probe"` // keep one tool process for format probes
}

// JournalConfig represents configuration for the run journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a Config with every setting at its default, keeping
// logs and the journal under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Folders: FoldersConfig{
			Quarantine: fixer.DefaultQuarantineFolder,
			Archive:    fixer.DefaultArchiveFolder,
		},
		Media: MediaConfig{
			Extensions:           clone(fixer.DefaultMediaExtensions),
			VideoExtensions:      clone(fixer.DefaultVideoExtensions),
			MislabeledExtensions: clone(fixer.DefaultMislabeledExtensions),
			DuplicateMarkers:     clone(fixer.DefaultDuplicateMarkers),
		},
		Tool: ToolConfig{Interpreter: "perl"},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "journal"),
		},
		Filesystem: FilesystemConfig{
			Ignore: []string{".DS_Store", "._*", "@eaDir", "Thumbs.db"},
		},
	}
}

// ApplyDefaults fills every unset field from NewConfig(baseDir). A file that
// only sets a few keys still yields a complete Config.
func (c *Config) ApplyDefaults(baseDir string) {
	if c.BaseDir == "" {
		c.BaseDir = baseDir
	}
	d := NewConfig(c.BaseDir)

	if c.LogDir == "" {
		c.LogDir = d.LogDir
	}
	if c.Folders.Quarantine == "" {
		c.Folders.Quarantine = d.Folders.Quarantine
	}
	if c.Folders.Archive == "" {
		c.Folders.Archive = d.Folders.Archive
	}
	if len(c.Media.Extensions) == 0 {
		c.Media.Extensions = d.Media.Extensions
	}
	if len(c.Media.VideoExtensions) == 0 {
		c.Media.VideoExtensions = d.Media.VideoExtensions
	}
	if c.Media.MislabeledExtensions == nil {
		c.Media.MislabeledExtensions = d.Media.MislabeledExtensions
	}
	if c.Media.DuplicateMarkers == nil {
		c.Media.DuplicateMarkers = d.Media.DuplicateMarkers
	}
	if c.Journal.Type == "" {
		c.Journal.Type = d.Journal.Type
	}
	if c.Journal.Type == "sqlite" && c.Journal.DataDir == "" {
		c.Journal.DataDir = d.Journal.DataDir
	}
	if c.Filesystem.Ignore == nil {
		c.Filesystem.Ignore = d.Filesystem.Ignore
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Folders.Quarantine == c.Folders.Archive {
		return fmt.Errorf("folders.quarantine and folders.archive must differ, both are %q", c.Folders.Archive)
	}
	for _, name := range []string{c.Folders.Quarantine, c.Folders.Archive} {
		if filepath.Base(name) != name || name == "." || name == ".." {
			return fmt.Errorf("output folder %q must be a plain directory name", name)
		}
	}
	switch c.Journal.Type {
	case "sqlite", "memory", "none":
	default:
		return fmt.Errorf("unknown journal type: %s", c.Journal.Type)
	}
	return nil
}

// Settings converts the media and folder sections into engine settings.
func (c *Config) Settings() fixer.Settings {
	return fixer.Settings{
		Media:            fixer.NewMediaTypes(c.Media.Extensions, c.Media.VideoExtensions, c.Media.MislabeledExtensions),
		DuplicateMarkers: c.Media.DuplicateMarkers,
		Folders:          fixer.OutputFolders{Quarantine: c.Folders.Quarantine, Archive: c.Folders.Archive},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Unknown keys are rejected
// so a misspelled setting does not silently fall back to its default.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads the config at path, or returns defaults when the file
// does not exist. Either way the result is complete and validated.
func LoadOrDefault(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = NewConfig(baseDir)
	case err != nil:
		return nil, err
	default:
		cfg.ApplyDefaults(baseDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
