package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mediax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file when none exists, then creates the local database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := shared.LoadConfig(configPath)
	switch {
	case err == nil:
	case !errors.Is(err, shared.ErrMissingConfig):
		r.logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	default:
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
		config = shared.DefaultConfig()
	}
	config.ApplyEnv()

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back the most recent migration")
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return err
		}
	}

	version, dirty, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}
	if dirty {
		r.logger.Warn("schema is dirty, a migration failed part way", "version", version)
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Database: %s (schema version %d)\n", config.Database.Path, version)
	return nil
}
