// Package config loads the stagepass configuration: a YAML file with
// STAGEPASS_* environment variable overrides applied on top.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working
// directory when no explicit path is given.
const DefaultConfigFile = "stagepass.yaml"

// Config holds everything the kiosk and CLI need to talk to the backend.
type Config struct {
	APIURL     string `yaml:"apiUrl"     envconfig:"API_URL"`
	AuthURL    string `yaml:"authUrl"    envconfig:"AUTH_URL"`
	UserID     int64  `yaml:"userId"     envconfig:"USER_ID"`
	Token      string `yaml:"token"      envconfig:"TOKEN"`
	Staff      bool   `yaml:"staff"      envconfig:"STAFF"`
	KioskPort  int    `yaml:"kioskPort"  envconfig:"KIOSK_PORT"`
	TwinPort   int    `yaml:"twinPort"   envconfig:"TWIN_PORT"`
	TwinSecret string `yaml:"twinSecret" envconfig:"TWIN_SECRET"`
	Verbose    bool   `yaml:"verbose"    envconfig:"VERBOSE"`
}

// Load reads the config file at path (DefaultConfigFile when empty), then
// applies STAGEPASS_* environment overrides. A missing file is not an
// error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := envconfig.Process("stagepass", cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if cfg.UserID <= 0 {
		return nil, fmt.Errorf("config: userId must be positive, got %d", cfg.UserID)
	}
	return cfg, nil
}

// Save writes the config back to path as YAML.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *Config {
	return &Config{
		APIURL:     "http://localhost:4780",
		AuthURL:    "http://localhost:4780",
		UserID:     1,
		KioskPort:  4781,
		TwinPort:   4780,
		TwinSecret: "stagepass-dev-secret",
	}
}
