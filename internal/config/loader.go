package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the tool.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	// Gateway listen port (default 8000).
	Port int `json:"port" yaml:"port" toml:"port"`
	// Base URL used by the invocation client, e.g. "http://localhost:8000/api/v1".
	// Derived from Port when empty.
	GatewayBaseURL string `json:"gateway_base_url" yaml:"gateway_base_url" toml:"gateway_base_url"`
	// Bearer token expected by the gateway (default "bedrock").
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// AWS region for direct Bedrock calls (default "us-east-1").
	Region string `json:"region" yaml:"region" toml:"region"`
	// Directory the gateway repository is cloned into.
	RepoDir string `json:"repo_dir" yaml:"repo_dir" toml:"repo_dir"`
	// Directory for the PID sentinel and background log file.
	RunDir string `json:"run_dir" yaml:"run_dir" toml:"run_dir"`
	// Listen address for the image gallery server, e.g. ":8081".
	GalleryAddr string `json:"gallery_addr" yaml:"gallery_addr" toml:"gallery_addr"`
	// Directory scanned for generated images (default ".").
	ImagesDir string `json:"images_dir" yaml:"images_dir" toml:"images_dir"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Defaults used when a field is unset in the file and no flag overrides it.
const (
	DefaultPort        = 8000
	DefaultAPIKey      = "bedrock"
	DefaultRegion      = "us-east-1"
	DefaultGalleryAddr = ":8081"
)

// ApplyDefaults fills unset fields with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.GatewayBaseURL == "" {
		c.GatewayBaseURL = fmt.Sprintf("http://localhost:%d/api/v1", c.Port)
	}
	if c.APIKey == "" {
		c.APIKey = DefaultAPIKey
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.RepoDir == "" {
		c.RepoDir = "bedrock-access-gateway"
	}
	if c.RunDir == "" {
		c.RunDir = "."
	}
	if c.GalleryAddr == "" {
		c.GalleryAddr = DefaultGalleryAddr
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "."
	}
}
