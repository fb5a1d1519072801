// Command wlrucachectl is a small command line front-end for disklru,
// useful for inspecting or pre-populating a cache directory without
// writing Go code.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/filecachehq/wlru/config"
	"github.com/filecachehq/wlru/disklru"
	"github.com/filecachehq/wlru/metric/prometheus"
)

// gitCommit is set via linker flags at release build time.
var gitCommit string

func main() {
	log.SetFlags(config.LogFlags)

	maybeCommit := ""
	if len(gitCommit) > 0 && gitCommit != "{STABLE_GIT_COMMIT}" {
		maybeCommit = fmt.Sprintf(" from git commit %s", gitCommit)
	}
	log.Printf("wlrucachectl built with %s%s.", runtime.Version(), maybeCommit)

	app := cli.NewApp()
	app.Name = "wlrucachectl"
	app.Usage = "inspect and manipulate a disklru cache directory"
	app.Flags = getCliFlags()
	app.Before = loadConfig
	app.Commands = []*cli.Command{
		putCommand,
		getCommand,
		rmCommand,
		statCommand,
		lsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("wlrucachectl: ", err)
	}
}

func loadConfig(ctx *cli.Context) error {
	cfg, err := config.Get(ctx)
	if err != nil {
		cli.ShowAppHelp(ctx)
		return cli.Exit(err, 1)
	}
	ctx.App.Metadata["config"] = cfg
	return nil
}

func configFrom(ctx *cli.Context) *config.Config {
	return ctx.App.Metadata["config"].(*config.Config)
}

// openCache opens the cache directory named by the loaded config, wiring
// up a Prometheus metric.Collector and a /metrics listener when enabled.
func openCache(ctx *cli.Context) (*disklru.Cache, error) {
	cfg := configFrom(ctx)

	opts := []disklru.Option{disklru.WithLogger(cfg.ErrorLogger)}
	if cfg.EnableMetrics {
		opts = append(opts, disklru.WithMetrics(prometheus.NewCollector()))
		go serveMetrics(cfg)
	}

	return disklru.Open(cfg.Dir, cfg.MaxSize, opts...)
}

func serveMetrics(cfg *config.Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.Handler())
	if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
		cfg.ErrorLogger.Printf("metrics server on %s stopped: %v", cfg.MetricsAddress, err)
	}
}
