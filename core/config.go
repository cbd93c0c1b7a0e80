package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultServiceURL is used when no backend address is configured.
const DefaultServiceURL = "https://api.appkey.io"

type Config struct {
	// ServiceURL is the base address of the AppKey REST backend.
	ServiceURL string `yaml:"service_url" env:"APPKEY_SERVICE_URL"`

	// RequestTimeout bounds a single ceremony call.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"APPKEY_REQUEST_TIMEOUT" envDefault:"30s"`

	// UploadTimeout bounds a single blob transfer.
	UploadTimeout time.Duration `yaml:"upload_timeout" env:"APPKEY_UPLOAD_TIMEOUT" envDefault:"10m"`
}

func DefaultConfig() *Config {
	return &Config{
		ServiceURL:     DefaultServiceURL,
		RequestTimeout: 30 * time.Second,
		UploadTimeout:  10 * time.Minute,
	}
}

// LoadConfigFromEnv reads configuration from APPKEY_* environment variables,
// falling back to the public service address when none is set.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = DefaultServiceURL
	}
	return &cfg, nil
}

// baseURL returns the service address without a trailing slash, or an empty
// string when the config is unusable.
func (c *Config) baseURL() string {
	if c == nil {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(c.ServiceURL), "/")
}
