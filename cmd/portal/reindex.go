package main

import (
	"fmt"

	"immigration-portal/internal/common/database"
	searchprograms "immigration-portal/internal/handlers/programs/search-programs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex-programs",
		Short: "Rebuild the programs search index from PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = zapLog.Sync() }()

			if !cfg.Database.Elasticsearch.Enabled {
				return fmt.Errorf("elasticsearch is disabled in configuration")
			}

			ctx := cmd.Context()

			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := waitFor(ctx, "PostgreSQL", commandRetry, zapLog, pg.Ping); err != nil {
				return err
			}

			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := waitFor(ctx, "Elasticsearch", commandRetry, zapLog, es.Ping); err != nil {
				return err
			}

			index := cfg.Database.Elasticsearch.ProgramsIndex
			count, err := searchprograms.Reindex(ctx, pg.DB, es, index)
			if err != nil {
				return fmt.Errorf("reindex programs: %w", err)
			}
			zapLog.Info("programs reindexed", zap.String("index", index), zap.Int("count", count))
			return nil
		},
	}
}
