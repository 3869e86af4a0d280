// Package config loads program configuration with Viper.
//
// LoadConfig reads an explicit YAML file, or the first of ./<name>.yml,
// ./config.yml and the extra search paths. It then exports ./.env (or an
// explicit env file) and binds one environment variable per key the target
// struct declares.
//
//	var cfg MyConfig
//	err := config.LoadConfig("apicall", &cfg, config.WithEnvPrefix("APICALL"))
//
// With the APICALL prefix, APICALL_CLIENT_TIMEOUT=5s sets client.timeout.
package config
