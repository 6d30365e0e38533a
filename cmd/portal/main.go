// cmd/portal/main.go
package main

import (
	"fmt"
	"os"

	"immigration-portal/internal/common/config"
	"immigration-portal/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Immigration program application portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (defaults to ./configs/config.yaml)")

	root.AddCommand(serveCmd(), migrateCmd(), reindexCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, logger.New(cfg.Logging, cfg.App.Name, cfg.App.Environment), nil
}
