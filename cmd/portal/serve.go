package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"immigration-portal/internal/common/auth"
	"immigration-portal/internal/common/aws"
	"immigration-portal/internal/common/config"
	"immigration-portal/internal/common/database"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/observability"
	"immigration-portal/internal/common/storage"
	sendemail "immigration-portal/internal/handlers/notification/send-email"
	searchprograms "immigration-portal/internal/handlers/programs/search-programs"
	"immigration-portal/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = zapLog.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, zapLog)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) error {
	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting immigration portal...", zap.String("version", cfg.App.Version))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return err
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	// --- Init PostgreSQL with retry ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	if err := waitFor(ctx, "PostgreSQL", startupRetry, zapLog, pg.Ping); err != nil {
		_ = pg.Close()
		return err
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	if err := waitFor(ctx, "Redis", startupRetry, zapLog, rdb.Ping); err != nil {
		_ = rdb.Close()
		return err
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var es *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		err = waitFor(ctx, "Elasticsearch", startupRetry, zapLog, es.Ping)
		if err != nil {
			return err
		}
		if err := es.EnsureIndex(ctx, cfg.Database.Elasticsearch.ProgramsIndex, searchprograms.IndexMapping); err != nil {
			return err
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init External Service Clients ---
	identity := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	generator, err := gemini.NewClient(ctx, cfg.APIs)
	if err != nil {
		return err
	}

	relay, err := newRelay(ctx, cfg)
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		DB:        pg.DB,
		Redis:     rdb.Client,
		Search:    es,
		Identity:  identity,
		Storage:   store,
		Generator: generator,
		Relay:     relay,
		Obs:       obs,
	}
	if cfg.Notifications.SMS.Enabled {
		sms, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return err
		}
		deps.SMS = sms
	}
	zapLog.Info("All external service clients initialized")

	srv, err := server.New(cfg, deps, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// newRelay picks the outbound mail transport named by notifications.provider.
func newRelay(ctx context.Context, cfg *config.Config) (sendemail.Relay, error) {
	switch cfg.Notifications.Provider {
	case sendemail.ProviderSES:
		client, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		return client, nil
	case sendemail.ProviderHTTP:
		return sendemail.NewHTTPRelay(
			cfg.Notifications.HTTP.URL,
			cfg.Notifications.HTTP.APIKey,
			config.GetDuration(cfg.Notifications.HTTP.Timeout),
		), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Notifications.Provider)
	}
}
