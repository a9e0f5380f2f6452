package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotify2apple/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes config.toml from the embedded template when missing,
// then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if err := r.loadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	version, _, err := shared.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
	r.writePlain("✓ Config at %s\n", configPath)

	if err := r.config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.apple_music.key_id, team_id and private_key_path in %s\n", configPath)
		r.writePlain("   (or export %sKEY_ID, %sTEAM_ID and %sPRIVATE_KEY_PATH)\n", shared.EnvPrefix, shared.EnvPrefix, shared.EnvPrefix)
		r.writePlain("2. Run 's2a token' to check the signing key\n")
	}

	return nil
}
