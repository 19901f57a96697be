// Command directupload-server serves the upload session API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/config"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/app"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("upload server configured",
		"backend", cfg.Storage.Backend,
		"bucket", cfg.Storage.Bucket,
		"store", cfg.Store.Kind,
	)
	return a.Server.Run(ctx, cfg.Server.Addr)
}
