// Package config loads tabledict settings from a yaml file, an optional .env
// file and TABLEDICT_* environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all tabledict configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects the database that dictionaries are generated from.
type SourceConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql
	DSN    string `yaml:"dsn"`
}

// StorageConfig selects where serialized dictionaries are cached.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // file, sqlite, memory
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
	Suffix    string `yaml:"suffix"`
	Compress  bool   `yaml:"compress"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Driver: "sqlite",
			DSN:    "aqe.sqlite",
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "storage",
			Namespace: "table_dictionary",
			Suffix:    ".txt",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (missing files are not an error), then .env, then the
// environment. An empty path skips the yaml step.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TABLEDICT_SOURCE_DRIVER":     &cfg.Source.Driver,
		"TABLEDICT_SOURCE_DSN":        &cfg.Source.DSN,
		"TABLEDICT_STORAGE_BACKEND":   &cfg.Storage.Backend,
		"TABLEDICT_STORAGE_PATH":      &cfg.Storage.Path,
		"TABLEDICT_STORAGE_NAMESPACE": &cfg.Storage.Namespace,
		"TABLEDICT_STORAGE_SUFFIX":    &cfg.Storage.Suffix,
		"TABLEDICT_SERVER_ADDR":       &cfg.Server.Addr,
		"TABLEDICT_LOG_LEVEL":         &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"TABLEDICT_STORAGE_COMPRESS": &cfg.Storage.Compress,
		"TABLEDICT_LOG_DEVELOPMENT":  &cfg.Logging.Development,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// Validate rejects unknown driver and backend names.
func (c Config) Validate() error {
	switch strings.ToLower(c.Source.Driver) {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unknown source driver %q", c.Source.Driver)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Namespace == "" || strings.Contains(c.Storage.Namespace, "..") {
		return fmt.Errorf("invalid storage namespace %q", c.Storage.Namespace)
	}
	return nil
}
