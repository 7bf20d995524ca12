package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	rootassets "github.com/doeshing/skip-go/assets"
	"github.com/doeshing/skip-go/internal/domain"
	"github.com/doeshing/skip-go/internal/pkg/filesystem"
	"github.com/doeshing/skip-go/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "SKIP_CONFIG"

// FileLoader loads YAML configuration from ~/.skip/config.yaml (overridable via SKIP_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, err
		}
		if err := os.WriteFile(path, rootassets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, err
		}
		data = rootassets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and fills defaults.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

// Default returns the embedded default configuration.
func Default() domain.Config {
	cfg, err := Parse(rootassets.DefaultConfigYAML)
	if err != nil {
		return hydrateDefaults(domain.Config{})
	}
	return cfg
}

// Save writes cfg back to the config file.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, raw, domain.SecureFilePermissions)
}

// Reset overwrites the config file with the embedded defaults.
func (l *FileLoader) Reset() (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}
	if err := filesystem.WriteFileAtomic(path, rootassets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return domain.Config{}, err
	}
	return Default(), nil
}

// Backup copies the current config file next to itself with a timestamp
// suffix and returns the backup path.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	if err := filesystem.CopyFile(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

// Exists reports whether the config file is present.
func (l *FileLoader) Exists() bool {
	_, err := os.Stat(l.Path())
	return err == nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filesystem.StatePath("config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.ContextsDir == "" {
		cfg.ContextsDir = filesystem.StatePath("contexts")
	}
	cfg.ContextsDir = filesystem.ExpandHome(cfg.ContextsDir)
	cfg.KaldiDir = filesystem.ExpandHome(cfg.KaldiDir)
	cfg.SRILMDir = filesystem.ExpandHome(cfg.SRILMDir)
	if cfg.History.Path == "" {
		cfg.History.Path = filesystem.StatePath("history.db")
	}
	cfg.History.Path = filesystem.ExpandHome(cfg.History.Path)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	cfg.Symbols = cfg.Symbols.WithSymbolDefaults()
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
