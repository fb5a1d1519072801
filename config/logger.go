package config

import (
	"io"
	"log"
	"os"
)

const (
	LogFlags = log.Ldate | log.Ltime | log.LUTC
)

func (c *Config) setLogger() error {
	logFlags := LogFlags
	switch c.LogTimezone {
	case "local":
		logFlags = log.Ldate | log.Ltime
	case "none":
		logFlags = 0
	}

	c.AccessLogger = log.New(os.Stdout, "", logFlags)
	c.ErrorLogger = log.New(os.Stderr, "", logFlags)

	if c.AccessLogLevel == "none" {
		c.AccessLogger.SetOutput(io.Discard)
	}

	return nil
}
