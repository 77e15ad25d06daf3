package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"xupload/internal/config"
	"xupload/internal/repository"
	"xupload/pkg/database"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the xupload database schema",
		Long: `Applies the SQL migrations embedded in the binary.

Connection settings come from DATABASE_URL or the DB_* variables,
optionally loaded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		dbCmd("up", "Apply all pending migrations", repository.MigrateUp, "Migrations completed successfully"),
		dbCmd("down", "Roll back the most recent migration", repository.MigrateDown, "Rollback completed successfully"),
		dbCmd("status", "Show the state of every migration", repository.MigrationStatus, ""),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func dbCmd(use, short string, fn func(context.Context, *sql.DB) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cmd.Context(), cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := fn(cmd.Context(), db); err != nil {
				return err
			}
			if done != "" {
				log.Println(done)
			}
			return nil
		},
	}
}
