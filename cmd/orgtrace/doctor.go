package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace/internal/cli"
	"github.com/kasw/orgtrace/internal/doctor"
	"github.com/kasw/orgtrace/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store health",
	Long: `Check that the configured database is usable: required extensions,
tables and query functions exist, colleague_pairs is populated, and the
data passes basic sanity checks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		st, err := store.Open(ctx, cfg.StoreConfig(), log)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer st.Close()

		report, err := doctor.New(st).Run(ctx)
		if err != nil {
			return cli.GeneralError("running health checks", err)
		}
		report.Print(os.Stdout, verbose > 0)

		if report.HasErrors() {
			return cli.DataError("health checks failed", nil)
		}
		return nil
	},
}
