// Package config loads poolctl settings: defaults, then an optional JSON
// file, then the environment, then flags.
package config

import (
	"os"
	"time"
)

const (
	envAddr  = "POOLCTL_ADDR"
	envToken = "POOLCTL_TOKEN"
)

// Config holds runtime settings for poolctl.
type Config struct {
	// ServerEndpointAddr is host:port of the gRPC endpoint.
	ServerEndpointAddr string
	// AccessToken is the operator JWT sent with administrative calls.
	AccessToken string
	// Timeout bounds each remote call.
	Timeout time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 90 * time.Second
}

// LoadConfig builds a Config from args (without the program name) and
// returns the remaining command words.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	parseEnv(cfg, os.LookupEnv)
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(envAddr); ok && v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := lookup(envToken); ok && v != "" {
		cfg.AccessToken = v
	}
}
