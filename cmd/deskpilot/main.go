package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deskpilot/deskpilot/internal/app"
	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var migrateOnly bool

	flagSet := pflag.NewFlagSet("deskpilot", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to the YAML config file")
	flagSet.BoolVar(&migrateOnly, "migrate", false, "run database migrations and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateOnly {
		return app.Migrate(ctx, cfg)
	}
	return app.RunServer(ctx, cfg)
}
