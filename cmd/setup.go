package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s %s\n", styles.OK("✓ wrote"), path)
	r.writePlainln("%s", styles.Help("Set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in the environment or a .env file."))
	return nil
}

// SetupDatabase initializes the run ledger and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if path := cmd.String("path"); path != "" {
		r.config.Database.Path = path
	}
	if r.config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty, the run ledger is disabled", shared.ErrMissingConfig)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("%s %s\n", styles.OK("✓ ledger ready at"), r.config.Database.Path)
	return nil
}
