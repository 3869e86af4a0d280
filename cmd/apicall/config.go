package main

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/kbukum/apikit/config"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/observability"
)

// userConfigName is looked up in the home directory when no config.yml is
// found in the usual places.
const userConfigName = ".apicall.yml"

// appConfig is the apicall configuration file layout.
type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// LogLevel controls the request logging adapter (none, info, debug).
	LogLevel string            `yaml:"log_level" mapstructure:"log_level"`
	Headers  map[string]string `yaml:"headers" mapstructure:"headers"`
	Auth     authConfig        `yaml:"auth" mapstructure:"auth"`

	Client  httpclient.Config          `yaml:"client" mapstructure:"client"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

type authConfig struct {
	Bearer   string `yaml:"bearer" mapstructure:"bearer"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	// APIKeyQuery sends the key as this query parameter instead of a header.
	APIKeyQuery string `yaml:"api_key_query" mapstructure:"api_key_query"`
}

// credentials returns the configured authentication, or nil.
func (a authConfig) credentials() *httpclient.AuthConfig {
	switch {
	case a.Bearer != "":
		return httpclient.BearerAuth(a.Bearer)
	case a.Username != "":
		return httpclient.BasicAuth(a.Username, a.Password)
	case a.APIKey != "" && a.APIKeyQuery != "":
		return httpclient.APIKeyAuthQuery(a.APIKey, a.APIKeyQuery)
	case a.APIKey != "":
		return httpclient.APIKeyAuth(a.APIKey)
	default:
		return nil
	}
}

// loadConfig reads the configuration and applies the flag overrides.
func loadConfig(opts *options) (*appConfig, error) {
	cfg := &appConfig{}
	cfg.Name = serviceName
	cfg.Environment = "production"

	loaderOpts := []config.LoaderOption{config.WithEnvPrefix(serviceName)}
	if home, err := homedir.Dir(); err == nil {
		loaderOpts = append(loaderOpts, config.WithSearchPaths(filepath.Join(home, userConfigName)))
	}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}
	if err := config.LoadConfig(serviceName, cfg, loaderOpts...); err != nil {
		return nil, err
	}

	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.bearer != "" {
		cfg.Auth = authConfig{Bearer: opts.bearer}
	}
	if opts.apiKey != "" {
		cfg.Auth = authConfig{APIKey: opts.apiKey}
	}
	if opts.otlpEndpoint != "" {
		cfg.Tracing.Endpoint = opts.otlpEndpoint
		cfg.Metrics.Endpoint = opts.otlpEndpoint
	}

	cfg.ApplyDefaults()
	if cfg.Client.Name == "" {
		cfg.Client.Name = cfg.Name
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.Name
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = cfg.Name
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// telemetryEnabled reports whether an OTLP endpoint was configured.
func (c *appConfig) telemetryEnabled() bool {
	return c.Tracing.Endpoint != ""
}
