package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the YAML server configuration.
type Config struct {
	Certificate CertConfig     `yaml:"certConfig"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Evidence    EvidenceConfig `yaml:"evidence"`
	Backup      BackupConfig   `yaml:"backup"`
}

type CertConfig struct {
	PublicKey  string `yaml:"cert"`
	PrivateKey string `yaml:"key"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// Secret signs session tokens. The GREENSCOPE_JWT_SECRET environment
	// variable overrides it so secrets can stay out of config files.
	Secret             string `yaml:"secret"`
	AccessExpiryMins   int    `yaml:"accessExpiryMinutes"`
	RefreshExpiryHours int    `yaml:"refreshExpiryHours"`
}

type EvidenceConfig struct {
	Dir         string `yaml:"dir"`
	MaxUploadMB int64  `yaml:"maxUploadMB"`
}

type BackupConfig struct {
	Dir  string `yaml:"dir"`
	Keep int    `yaml:"keep"`
}

// LoadConfig reads and validates the YAML config at path, applying
// defaults for anything unset.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if v := os.Getenv("GREENSCOPE_JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("config %s: auth.secret (or GREENSCOPE_JWT_SECRET) is required", path)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/greenscope.db"
	}
	if cfg.Evidence.Dir == "" {
		cfg.Evidence.Dir = "./data/evidence"
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "./data/backups"
	}
	return &cfg, nil
}
