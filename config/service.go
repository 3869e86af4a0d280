package config

import (
	"fmt"

	"github.com/kbukum/apikit/logger"
)

// ServiceConfig contains the fields every program built on apikit needs.
// Programs extend it by embedding it in their own config structs.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client httpclient.Config `yaml:"client" mapstructure:"client"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns the base ServiceConfig. The method is promoted
// through embedding.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !validEnvironment(c.Environment) {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

func validEnvironment(env string) bool {
	switch env {
	case "development", "staging", "production":
		return true
	}
	return false
}
