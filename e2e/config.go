package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR points at a running relay, e.g. ws://localhost:8080/ws.
	// The suite skips itself when unset.
	RelayAddr string `envconfig:"RELAY_ADDR"`
	JWTSecret string `envconfig:"JWT_SECRET" default:"e2e-secret"`
	Channel   string `envconfig:"E2E_CHANNEL" default:"general"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
