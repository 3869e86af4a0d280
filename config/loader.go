package config

import (
	"encoding"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/apikit/logger"
)

// LoaderConfig holds the options of a single LoadConfig call.
type LoaderConfig struct {
	// ConfigFile is read instead of searching. A missing or broken file is an error.
	ConfigFile string
	// EnvFile is loaded instead of ./.env. A missing file is an error.
	EnvFile string
	// SearchPaths are tried after ./<name>.yml and ./config.yml.
	SearchPaths []string
	// EnvPrefix is prepended to every bound variable name.
	EnvPrefix string
	Logger    *logger.Logger
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile reads path instead of searching for a config file.
func WithConfigFile(path string) LoaderOption {
	return func(c *LoaderConfig) { c.ConfigFile = path }
}

// WithEnvFile loads path instead of ./.env.
func WithEnvFile(path string) LoaderOption {
	return func(c *LoaderConfig) { c.EnvFile = path }
}

// WithSearchPaths adds config file candidates after the working directory ones.
func WithSearchPaths(paths ...string) LoaderOption {
	return func(c *LoaderConfig) { c.SearchPaths = append(c.SearchPaths, paths...) }
}

// WithEnvPrefix sets the prefix of the bound environment variables.
// With prefix "apicall", client.timeout is read from APICALL_CLIENT_TIMEOUT.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(c *LoaderConfig) { c.EnvPrefix = prefix }
}

// WithLogger sets the logger that receives loader warnings.
func WithLogger(log *logger.Logger) LoaderOption {
	return func(c *LoaderConfig) { c.Logger = log }
}

// LoadConfig fills cfg from a YAML file, a .env file and the environment,
// in increasing order of precedence. cfg must be a pointer to a struct whose
// fields carry mapstructure tags; only the keys it declares are bound to
// environment variables.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{}
	for _, opt := range opts {
		opt(&lc)
	}
	log := lc.Logger
	if log == nil {
		log = logger.Nop()
	}

	t := reflect.TypeOf(cfg)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: target must be a pointer to a struct, got %T", cfg)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := readConfigFile(v, name, lc, log); err != nil {
		return err
	}
	if err := loadEnvFile(lc, log); err != nil {
		return err
	}
	for _, key := range Keys(t.Elem()) {
		if err := v.BindEnv(key, EnvName(lc.EnvPrefix, key)); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, name string, lc LoaderConfig, log *logger.Logger) error {
	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", lc.ConfigFile, err)
		}
		log.Debug("loaded config file", logger.Fields("path", lc.ConfigFile))
		return nil
	}

	path := findConfigFile(name, lc.SearchPaths)
	if path == "" {
		log.Debug("no config file found", logger.Fields("name", name))
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.Warn("failed to load config file", logger.Fields("path", path, "error", err.Error()))
		return nil
	}
	log.Debug("loaded config file", logger.Fields("path", path))
	return nil
}

// findConfigFile returns the first existing candidate, or "".
func findConfigFile(name string, extra []string) string {
	candidates := []string{name + ".yml", name + ".yaml", "config.yml", "config.yaml"}
	candidates = append(candidates, extra...)
	for _, p := range candidates {
		if p != "" && isFile(p) {
			return p
		}
	}
	return ""
}

// loadEnvFile exports the .env entries that the environment does not
// already define.
func loadEnvFile(lc LoaderConfig, log *logger.Logger) error {
	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return fmt.Errorf("config: load %s: %w", lc.EnvFile, err)
		}
		return nil
	}
	if !isFile(".env") {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		log.Warn("failed to load .env file", logger.Fields("error", err.Error()))
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && !info.IsDir()
}

// EnvName returns the environment variable bound to a dotted config key.
func EnvName(prefix, key string) string {
	name := strings.ReplaceAll(key, ".", "_")
	if prefix != "" {
		name = strings.TrimSuffix(prefix, "_") + "_" + name
	}
	return strings.ToUpper(name)
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// Keys lists the dotted config keys declared by t's mapstructure tags.
// Squashed structs contribute their keys at the parent level. Maps, slices
// and types with their own text decoding are single keys.
func Keys(t reflect.Type) []string {
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, squash := mapstructureName(f)
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Func || ft.Kind() == reflect.Chan {
			continue
		}
		nested := ft.Kind() == reflect.Struct && !reflect.PointerTo(ft).Implements(textUnmarshalerType)
		if squash && nested {
			collectKeys(ft, prefix, keys)
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if nested {
			collectKeys(ft, key, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}

func mapstructureName(f reflect.StructField) (name string, squash bool) {
	tag := f.Tag.Get("mapstructure")
	name, opts, _ := strings.Cut(tag, ",")
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "squash" {
			squash = true
		}
	}
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, squash
}
