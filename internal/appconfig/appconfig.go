// Package appconfig loads the periscope configuration file.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the config schema version this build accepts.
const CurrentConfigVersion = 1

// Config is the on-disk configuration.
type Config struct {
	ConfigVersion int        `yaml:"config_version"`
	HTTP          HTTPConfig `yaml:"http"`
}

// HTTPConfig holds the push channel and HTTP settings.
type HTTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	SendBuffer int    `yaml:"send_buffer"`
	Welcome    string `yaml:"welcome"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		HTTP: HTTPConfig{
			Host:       "127.0.0.1",
			Port:       8744,
			SendBuffer: 256,
			Welcome:    "periscope connected",
		},
	}
}

// DefaultConfigPath returns the per-user config location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "periscope", "config.yaml"), nil
}

// Load reads configuration from the provided path. If path is empty,
// DefaultConfigPath is used. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("http.host", cfg.HTTP.Host)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.send_buffer", cfg.HTTP.SendBuffer)
	v.SetDefault("http.welcome", cfg.HTTP.Welcome)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return Config{}, err
	}

	if v.GetInt("config_version") != CurrentConfigVersion {
		return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
	}

	cfg.ConfigVersion = v.GetInt("config_version")
	cfg.HTTP.Host = v.GetString("http.host")
	cfg.HTTP.Port = v.GetInt("http.port")
	cfg.HTTP.SendBuffer = v.GetInt("http.send_buffer")
	cfg.HTTP.Welcome = v.GetString("http.welcome")
	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating
// parent directories. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
