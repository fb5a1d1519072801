package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/urfave/cli/v2"
	yaml "gopkg.in/yaml.v3"
)

// Config holds the top-level configuration for wlrucachectl.
type Config struct {
	Dir            string `yaml:"dir"`
	MaxSize        uint64 `yaml:"max_size"`
	AccessLogLevel string `yaml:"access_log_level"`
	LogTimezone    string `yaml:"log_timezone"`
	EnableMetrics  bool   `yaml:"enable_metrics"`
	MetricsAddress string `yaml:"metrics_address"`

	// Fields populated after basic validation, not read from YAML/flags
	// directly.
	AccessLogger *log.Logger
	ErrorLogger  *log.Logger
}

type yamlConfig struct {
	Config `yaml:",inline"`
}

// newFromArgs returns a validated Config built from explicit values, as
// used when no config_file flag is given.
func newFromArgs(dir string, maxSize uint64, accessLogLevel string, logTimezone string,
	enableMetrics bool, metricsAddress string) (*Config, error) {

	c := Config{
		Dir:            dir,
		MaxSize:        maxSize,
		AccessLogLevel: accessLogLevel,
		LogTimezone:    logTimezone,
		EnableMetrics:  enableMetrics,
		MetricsAddress: metricsAddress,
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// newFromYamlFile reads configuration settings from a YAML file then
// returns a validated Config with those settings.
func newFromYamlFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %q: %v", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %v", path, err)
	}

	return newFromYaml(data)
}

func newFromYaml(data []byte) (*Config, error) {
	yc := yamlConfig{
		Config: Config{
			MaxSize:        math.MaxInt64,
			AccessLogLevel: "all",
			LogTimezone:    "UTC",
		},
	}

	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %v", err)
	}
	c := yc.Config

	if err := validateConfig(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validateConfig(c *Config) error {
	if c.Dir == "" {
		return errors.New("the 'dir' flag/key is required")
	}

	if c.MaxSize == 0 {
		return errors.New("the 'max_size' flag/key must be set to a value > 0")
	}

	switch c.AccessLogLevel {
	case "none", "all":
	default:
		return errors.New("'access_log_level' must be set to either \"none\" or \"all\"")
	}

	switch c.LogTimezone {
	case "UTC", "local", "none":
	default:
		return errors.New("'log_timezone' must be set to either \"UTC\", \"local\" or \"none\"")
	}

	if c.EnableMetrics && c.MetricsAddress == "" {
		return errors.New("'metrics_address' is required when 'enable_metrics' is set")
	}

	return nil
}

// Get builds a Config from the config_file when one is given, otherwise
// from the other CLI flags, and wires up its loggers.
func Get(ctx *cli.Context) (*Config, error) {
	cfg, err := get(ctx)
	if err != nil {
		return nil, err
	}

	if err := cfg.setLogger(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func get(ctx *cli.Context) (*Config, error) {
	configFile := ctx.String("config_file")
	if configFile != "" {
		return newFromYamlFile(configFile)
	}

	return newFromArgs(
		ctx.String("dir"),
		uint64(ctx.Int64("max_size")),
		ctx.String("access_log_level"),
		ctx.String("log_timezone"),
		ctx.Bool("enable_metrics"),
		ctx.String("metrics_address"),
	)
}
