package config

import (
	"encoding/json"
	"os"
)

// ServiceConfig is the build metadata printed in the startup banner.
// It is read from the .serviceconfig JSON file next to the binary.
type ServiceConfig struct {
	ServiceName string `json:"service_name"`
	ServiceCode string `json:"service_code"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Owner       string `json:"owner"`
	Repository  string `json:"repository"`
}

func LoadServiceConfig(path string) (*ServiceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ServiceConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
