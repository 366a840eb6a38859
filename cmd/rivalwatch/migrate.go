package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/rivalwatch/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the decision log schema to the latest version.

Every other command migrates on startup; this command only migrates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			target := cfg.Database.Path
			if cfg.Database.Driver == "postgres" {
				target = "postgres"
			}
			slog.Info("Starting database migration", "driver", cfg.Database.Driver, "database", target)

			store, err := openStore(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			slog.Info("✅ Database migrations completed successfully!")
			return nil
		},
	}
}
