package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/cache"
	"sarvsaathi-server/internal/config"
	"sarvsaathi-server/internal/logger"
	"sarvsaathi-server/internal/media"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sarvsaathi-server",
		Short: "SarvSaathi healthcare appointment API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(verifyDoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func verifyDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-doctor <email>",
		Short: "Mark a doctor account as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			c, err := newCache(cfg)
			if err != nil {
				return err
			}

			svc := accounts.NewService(store.New(db), cfg, media.Disabled{}, c)
			doctor, err := svc.VerifyDoctor(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified doctor %s (%s)\n", doctor.ID, args[0])
			return nil
		},
	}
}

// bootstrap loads configuration and initializes the global logger.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.App.Name, string(cfg.App.Env))
	return cfg, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.OpenDB(models.DatabaseConfig{
		DSN:     cfg.DSN(),
		LogSQL:  cfg.Database.LogSQL,
		MaxOpen: cfg.Database.MaxOpen,
		MaxIdle: cfg.Database.MaxIdle,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// newCache picks Redis when enabled and an in-process LRU otherwise.
func newCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Redis.Enabled {
		return cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.App.Name+":"), nil
	}
	return cache.NewLRU(cfg.Cache.Size)
}
