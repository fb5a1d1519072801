package main

import "github.com/urfave/cli/v2"

// getCliFlags returns the flags wlrucachectl accepts. A config_file, when
// given, takes precedence over every other flag.
func getCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config_file",
			Value:   "",
			Usage:   "Path to a YAML configuration file. If given, all other flags are ignored.",
			EnvVars: []string{"WLRU_CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:    "dir",
			Value:   "",
			Usage:   "Directory path under which to store cache entries. Required.",
			EnvVars: []string{"WLRU_DIR"},
		},
		&cli.Int64Flag{
			Name:    "max_size",
			Value:   0,
			Usage:   "The maximum size of the cache in bytes. Required.",
			EnvVars: []string{"WLRU_MAX_SIZE"},
		},
		&cli.StringFlag{
			Name:    "access_log_level",
			Value:   "all",
			Usage:   "Which accesses to log. Must be one of \"all\" or \"none\".",
			EnvVars: []string{"WLRU_ACCESS_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log_timezone",
			Value:   "UTC",
			Usage:   "Timezone used in log timestamps. Must be one of \"UTC\", \"local\" or \"none\".",
			EnvVars: []string{"WLRU_LOG_TIMEZONE"},
		},
		&cli.BoolFlag{
			Name:    "enable_metrics",
			Value:   false,
			Usage:   "Serve Prometheus metrics.",
			EnvVars: []string{"WLRU_ENABLE_METRICS"},
		},
		&cli.StringFlag{
			Name:    "metrics_address",
			Value:   "",
			Usage:   "Address to serve /metrics on. Required when enable_metrics is set.",
			EnvVars: []string{"WLRU_METRICS_ADDRESS"},
		},
	}
}
