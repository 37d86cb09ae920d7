package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	_ "github.com/kirinyoku/eventhub/docs"
	"github.com/kirinyoku/eventhub/internal/app"
	"github.com/kirinyoku/eventhub/internal/config"
)

// @title EventHub API
// @version 1.0
// @description Event ticketing, holds and check-in, plus the community site around it.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envFile := pflag.String("env-file", "", "load environment variables from this file")
	migrateOnly := pflag.Bool("migrate-only", false, "apply migrations and exit")
	skipMigrations := pflag.Bool("skip-migrations", false, "start without applying migrations")
	pflag.Parse()

	cfg, err := config.New(*envFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if !*skipMigrations || *migrateOnly {
		if err := application.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			application.Close()
			os.Exit(1)
		}
	}
	if *migrateOnly {
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		application.Close()
		os.Exit(1)
	}
}
