package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/LdDl/algo-plugin-go/plugins"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maximum accepted size of a chain file
const maxConfigSize = 1 * 1024 * 1024

// PluginConfig names a catalogue plugin and the property values applied after construction
type PluginConfig struct {
	Name       string                  `json:"name" validate:"required"`
	Properties map[string]plugin.Value `json:"properties,omitempty"`
}

// Config describes a chain
type Config struct {
	Plugins []PluginConfig `json:"plugins" validate:"required,min=1,dive"`
	OnError ErrorPolicy    `json:"on_error,omitempty" validate:"omitempty,oneof=skip abort"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structure of the config. Plugin names and properties are checked by BuildChain
func (cfg *Config) Validate() error {
	return validate.Struct(cfg)
}

// ParseConfig decodes and validates chain JSON
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse chain JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads chain file. The file must have .json extension
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("chain file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat chain file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("chain file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	return ParseConfig(data)
}

// BuildChain creates every plugin from the catalogue and applies its properties.
// Unknown property names are errors here, so a typo in the file is not silently ignored.
func BuildChain(cfg *Config, logger logrus.FieldLogger) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain configuration: %w", err)
	}
	built := make([]plugin.Plugin, 0, len(cfg.Plugins))
	for i, pc := range cfg.Plugins {
		p, err := plugins.New(pc.Name)
		if err != nil {
			return nil, fmt.Errorf("plugins[%d]: %w", i, err)
		}
		if err := plugin.SetProperties(p, pc.Properties); err != nil {
			return nil, fmt.Errorf("plugins[%d] %q: %w", i, pc.Name, err)
		}
		built = append(built, p)
	}
	return NewChain(logger, cfg.OnError, built...)
}
