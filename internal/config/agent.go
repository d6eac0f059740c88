package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// AgentEnvPrefix prefixes every agent environment variable.
const AgentEnvPrefix = "DNSKEEPER_"

// AgentConfig contains agent configuration parameters.
type AgentConfig struct {
	LogLevel        int           `env:"LOG_LEVEL" envDefault:"0"`
	APIURL          string        `env:"API_URL" envDefault:"http://localhost:8080"`
	APITimeout      time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	Issuer          AgentIssuer   `envPrefix:"ISSUER_"`
	StatePath       string        `env:"STATE_PATH"`
	SyncInterval    time.Duration `env:"SYNC_INTERVAL" envDefault:"300s"`
	IPLookupURL     string        `env:"IP_LOOKUP_URL" envDefault:"https://api.ipify.org"`
	IPLookupTimeout time.Duration `env:"IP_LOOKUP_TIMEOUT" envDefault:"10s"`
}

// AgentIssuer contains device authorization parameters.
type AgentIssuer struct {
	URL      string        `env:"URL" envDefault:"http://localhost:9000"`
	ClientID string        `env:"CLIENT_ID" envDefault:"dnskeeper-agent"`
	Scope    string        `env:"SCOPE" envDefault:"openid offline_access"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// NewAgentConfig loads agent configuration from DNSKEEPER_* environment
// variables. StatePath defaults to ~/.config/dnskeeper/agent.yaml.
func NewAgentConfig() (*AgentConfig, error) {
	cfg := AgentConfig{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: AgentEnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse agent config: %w", err)
	}

	if cfg.StatePath == "" {
		path, err := DefaultStatePath()
		if err != nil {
			return nil, err
		}
		cfg.StatePath = path
	}

	return &cfg, nil
}

// DefaultStatePath returns the per-user agent state file location.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dnskeeper", "agent.yaml"), nil
}
