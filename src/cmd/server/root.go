package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/tenmo-ledger/src/internal/config"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/migrations"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "tenmo",
	Short:         "Tenmo transfer ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", err, nil)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerCommands(cmds ...*cobra.Command) {
	for _, c := range cmds {
		rootCmd.AddCommand(c)
	}
}

// loadConfig reads configuration and initializes logging for a command.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func migrationsFS(cfg config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

func migrate(ctx context.Context, db *sql.DB, cfg config.Config) error {
	applied, err := implementations.RunMigrations(ctx, db, migrationsFS(cfg))
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations completed", logger.Fields{"applied": applied})
	return nil
}
