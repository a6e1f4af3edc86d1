package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/warrantypool/internal/flagx"
	"github.com/dmitrijs2005/warrantypool/internal/timex"
)

type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token"`
	Timeout            timex.Duration `json:"timeout"`
}

// parseJson overlays values from the file named by -c or -config.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlags(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", jsonConfigFile, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	if c.ServerEndpointAddr != "" {
		config.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.AccessToken != "" {
		config.AccessToken = c.AccessToken
	}
	if c.Timeout.Duration != 0 {
		config.Timeout = c.Timeout.Duration
	}
	return nil
}
