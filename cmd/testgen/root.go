package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"testgen/internal/app"
	"testgen/internal/db"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "testgen",
	Short: "Test variant generator and answer scoring service",
	RunE:  runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: postgres or sqlite (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database DSN (overrides DB_DSN)")
	rootCmd.PersistentFlags().Bool("memory", false, "use in-memory stores seeded with sample questions instead of a database")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(exportResultsCmd)
}

// loadConfig applies persistent flag overrides on top of the environment.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	cfg := app.LoadConfig()
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db-dsn"); v != "" {
		cfg.DBDSN = v
	}
	driver, err := db.NormalizeDriver(cfg.DBDriver)
	if err != nil {
		return cfg, err
	}
	cfg.DBDriver = driver
	return cfg, nil
}

// openServices returns the wired services and, unless --memory is set, the
// database connection the caller must close.
func openServices(cmd *cobra.Command, cfg app.Config) (*app.Services, *sql.DB, error) {
	if memory, _ := cmd.Flags().GetBool("memory"); memory {
		cfg.SeedSampleQuestions = true
		svc, err := app.NewServices(cfg, nil)
		return svc, nil, err
	}
	conn, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.NewServices(cfg, conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return svc, conn, nil
}

func openDB(ctx context.Context, cfg app.Config) (*sql.DB, error) {
	return db.Open(ctx, cfg.DBDriver, cfg.DBDSN, db.Config{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
}
