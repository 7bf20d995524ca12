package helpers

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/skip-go/internal/app"
	configapp "github.com/doeshing/skip-go/internal/application/config"
	"github.com/doeshing/skip-go/internal/domain"
	configinfra "github.com/doeshing/skip-go/internal/infrastructure/config"
)

// ErrKeyNotFound is returned when a dotted key names nothing in the config.
var ErrKeyNotFound = errors.New("key not found in configuration")

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, errors.New("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates cfg, backs up the current file and
// writes cfg in its place.
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if loader.Exists() {
		if _, err := loader.Backup(); err != nil {
			return fmt.Errorf("failed to create configuration backup: %w", err)
		}
	}
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// ConfigTree is the YAML view of a configuration addressed by dotted keys
// such as "symbols.silence_phone" or "history.enabled".
type ConfigTree map[string]interface{}

// NewConfigTree converts cfg to its YAML view.
func NewConfigTree(cfg domain.Config) (ConfigTree, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	tree := ConfigTree{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to read config tree: %w", err)
	}
	return tree, nil
}

// Config converts the tree back to a domain.Config. Unknown keys are dropped.
func (t ConfigTree) Config() (domain.Config, error) {
	raw, err := yaml.Marshal(map[string]interface{}(t))
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal config tree: %w", err)
	}
	var cfg domain.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Get returns the value at key.
func (t ConfigTree) Get(key string) (interface{}, error) {
	var node interface{} = map[string]interface{}(t)
	for _, part := range splitKey(key) {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
		}
		if node, ok = m[part]; !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
		}
	}
	return node, nil
}

// Set stores value at key, creating intermediate sections. A scalar in the
// way of the path is replaced by a section.
func (t ConfigTree) Set(key string, value interface{}) error {
	parts := splitKey(key)
	if len(parts) == 0 {
		return fmt.Errorf("empty key: %w", ErrKeyNotFound)
	}
	section := map[string]interface{}(t)
	for _, part := range parts[:len(parts)-1] {
		child, ok := section[part].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			section[part] = child
		}
		section = child
	}
	section[parts[len(parts)-1]] = value
	return nil
}

func splitKey(key string) []string {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return strings.Split(key, ".")
}

// ParseYAMLValue parses a command-line value as YAML so "true", "3" and
// "[a, b]" keep their types. Unparseable input is taken literally.
func ParseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil {
		return input
	}
	return parsed
}
