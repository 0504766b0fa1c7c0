// Package app holds process wiring shared by the binaries: environment
// config, logging and the default engine loader.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/cognicore/kiwi-analysis/pkg/kiwi/config"
)

// Config is the process configuration. Priority: ENV > YAML > env-default.
type Config struct {
	Log LogConfig `yaml:"log"`
	// SettingsPath points at an analyzer settings file; empty uses defaults.
	SettingsPath string `yaml:"settings_path" env:"KIWI_SETTINGS"`
	// ModelPath overrides model_path from the settings file.
	ModelPath string `yaml:"model_path"    env:"KIWI_MODEL_PATH"`
	StorePath string `yaml:"store_path"    env:"KIWI_STORE_PATH" env-default:"kiwi-index.db"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// LoadConfig reads config from the YAML file at path, or from the
// environment only when path is empty.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("app config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("app config: read %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("app config: read env: %w", err)
	}
	return &cfg, nil
}

// Settings loads the analyzer settings the config points at and applies
// the model path override.
func (c *Config) Settings() (config.Settings, error) {
	s := config.Default()
	if c.SettingsPath != "" {
		var err error
		s, err = config.Load(c.SettingsPath)
		if err != nil {
			return config.Settings{}, err
		}
	}
	if p := strings.TrimSpace(c.ModelPath); p != "" {
		s.ModelPath = p
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}
