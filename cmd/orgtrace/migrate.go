package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace/internal/cli"
	"github.com/kasw/orgtrace/internal/store"
)

var migrateReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or reset the database schema",
	Long:  `Create the tables, indexes, materialized views, and functions.`,
	Example: `  # Create the schema
  orgtrace migrate

  # Drop everything and recreate
  orgtrace migrate --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := cfg.DSN()
		if err != nil {
			return cli.ConfigError("database configuration", err)
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		log := newLogger()
		defer func() { _ = log.Sync() }()

		mgr := store.NewSchemaManager(store.SQLExecer{DB: db}, log)
		ctx := context.Background()

		if migrateReset {
			if err := mgr.Reset(ctx); err != nil {
				return cli.GeneralError("resetting schema", err)
			}
			fmt.Println("Schema reset.")
			return nil
		}
		if err := mgr.Setup(ctx); err != nil {
			return cli.GeneralError("applying schema", err)
		}
		fmt.Println("Schema applied.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop and recreate the schema")
}
