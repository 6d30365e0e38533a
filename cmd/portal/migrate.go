package main

import (
	"fmt"

	"immigration-portal/internal/common/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			cfg, zapLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = zapLog.Sync() }()

			url := cfg.Database.Postgres.GetURL()
			switch direction {
			case "up":
				err = database.MigrateUp(url)
			case "down":
				err = database.MigrateDown(url)
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}

			version, dirty, err := database.MigrationVersion(url)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			zapLog.Info("migration complete",
				zap.String("direction", direction),
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
			return nil
		},
	}
	return cmd
}
