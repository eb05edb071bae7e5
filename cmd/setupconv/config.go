package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the setupconv configuration file
// ($XDG_CONFIG_HOME/setupconv/config.yaml). Pointer fields distinguish "not
// set" from zero values. Flags given on the command line always win.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Conversion defaults
	Kind     string   `yaml:"kind"`
	Beta     *bool    `yaml:"beta"`
	Includes []string `yaml:"includes"`
	Workers  *int     `yaml:"workers"`

	// Server
	ServerAddress string `yaml:"server_address"`
	MaxBody       *int64 `yaml:"max_body"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "setupconv", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyConversionConfig applies config defaults to the kind and format flags
// when they were not given explicitly.
func applyConversionConfig(c *cli.Command, cfg Config) {
	if cfg.Kind != "" && !c.IsSet("kind") {
		kindName = cfg.Kind
	}
	if cfg.Beta != nil && !c.IsSet("beta") {
		beta = *cfg.Beta
	}
	if len(cfg.Includes) > 0 && !c.IsSet("include") {
		includes = cfg.Includes
	}
}

func applyBatchConfig(c *cli.Command, cfg Config, workers *int) {
	applyConversionConfig(c, cfg)
	if cfg.Workers != nil && !c.IsSet("workers") {
		*workers = *cfg.Workers
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxBody *int64) {
	if len(cfg.Includes) > 0 && !c.IsSet("include") {
		includes = cfg.Includes
	}
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxBody != nil && !c.IsSet("max-body") {
		*maxBody = *cfg.MaxBody
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}
