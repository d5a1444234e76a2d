package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Graph          GraphConfig    `yaml:"graph"`
	Collaborations []CollabConfig `yaml:"collaborations"`
	Signals        []string       `yaml:"signals"`
	Sync           SyncConfig     `yaml:"sync"`
	State          StateConfig    `yaml:"state"`
	Store          StoreConfig    `yaml:"store"`
	Logging        LoggingConfig  `yaml:"logging"`
	Metrics        MetricsConfig  `yaml:"metrics"`
}

type GraphConfig struct {
	BaseURL  string `yaml:"base_url"`
	AppToken string `yaml:"app_token"`
}

type CollabConfig struct {
	Name         string `yaml:"name"`
	PrivacyGroup int64  `yaml:"privacy_group"`
	Enabled      bool   `yaml:"enabled"`
}

type SyncConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	PageSize        int `yaml:"page_size"`
}

type StateConfig struct {
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Sync.IntervalSeconds == 0 {
		cfg.Sync.IntervalSeconds = 300
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.State.Path == "" {
		home, _ := os.UserHomeDir()
		cfg.State.Path = filepath.Join(home, ".threatsync", "state.json")
	} else {
		cfg.State.Path = expandPath(cfg.State.Path)
	}
	if cfg.Store.Path == "" {
		home, _ := os.UserHomeDir()
		cfg.Store.Path = filepath.Join(home, ".threatsync", "signals.db")
	} else {
		cfg.Store.Path = expandPath(cfg.Store.Path)
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Logging.Path != "" {
		cfg.Logging.Path = expandPath(cfg.Logging.Path)
	}

	seen := make(map[string]bool)
	for _, collab := range cfg.Collaborations {
		if collab.Name == "" {
			return nil, fmt.Errorf("collaboration with privacy group %d has no name", collab.PrivacyGroup)
		}
		if collab.PrivacyGroup == 0 {
			return nil, fmt.Errorf("collaboration %q has no privacy group", collab.Name)
		}
		if seen[collab.Name] {
			return nil, fmt.Errorf("duplicate collaboration name %q", collab.Name)
		}
		seen[collab.Name] = true
	}

	return &cfg, nil
}
