/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/clipshare/apiserver/config"
	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/internal/store/mongostore"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

const mongoIndexTimeout = 30 * time.Second

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Applies schema migrations for the configured store. For PostgreSQL
this runs the SQL migrations; for MongoDB it creates the collection indexes.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		switch cfg.StoreBackend {
		case config.StoreMongo:
			if err := ensureMongoIndexes(cmd.Context(), cfg.Mongo); err != nil {
				return err
			}
			logger.Info("mongo indexes ensured")
			return nil
		case config.StorePostgres:
		default:
			return fmt.Errorf("store backend %q has no migrations", cfg.StoreBackend)
		}

		migrator, err := newMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("no migrations to apply")
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := cmd.Flags().GetInt("steps")
		if err != nil {
			return err
		}

		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if cfg.StoreBackend != config.StorePostgres {
			return fmt.Errorf("store backend %q has no migrations", cfg.StoreBackend)
		}

		migrator, err := newMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if steps > 0 {
			err = migrator.Steps(-steps)
		} else {
			err = migrator.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		logger.Info("migrations rolled back")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back (0 rolls back all)")
}

func newMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	dsn, err := db.PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	path, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		return nil, err
	}

	migrator, err := migrate.New("file://"+filepath.ToSlash(path), dsn)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

func ensureMongoIndexes(ctx context.Context, cfg config.MongoConfig) error {
	pool := db.NewMongoPool(cfg)
	defer func() { _ = pool.Close() }()

	ctx, cancel := context.WithTimeout(ctx, mongoIndexTimeout)
	defer cancel()
	return mongostore.NewDatabase(pool, cfg.Database).EnsureIndexes(ctx)
}
