package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	corecmd "github.com/m3rciful/qabot/core/cmd"
	coreconfig "github.com/m3rciful/qabot/core/config"
	coredatabase "github.com/m3rciful/qabot/core/database"
)

// Config is the full application configuration: the shared bot settings plus
// the context-store database section. An empty database host keeps chat
// context in process memory.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded shared configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads application configuration from a YAML file and the
// environment.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	normalizeDatabase(&cfg.Database)
	return &cfg, nil
}

func normalizeDatabase(db *coredatabase.Config) {
	if db.Host == "" {
		return
	}
	if db.Port == "" {
		db.Port = "5432"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxConnections <= 0 {
		db.MaxConnections = 10
	}
}
