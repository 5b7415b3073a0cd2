package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/mediax/internal/shared"
	"github.com/urfave/cli/v3"
)

// configEnv names an alternative config file path.
const configEnv = "MEDIAX_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if p := os.Getenv(configEnv); p != "" {
		configPath = p
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	logger.SetLevel(shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "mediax",
		Usage:    "Search openly licensed media and get descriptions for your files",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			stop()
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
