package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace/internal/cli"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entity counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		s, err := h.Stats(ctx)
		if err != nil {
			return cli.GeneralError("gathering stats", err)
		}
		fmt.Printf("People:             %d\n", s.People)
		fmt.Printf("Organizations:      %d\n", s.Organizations)
		fmt.Printf("Employment records: %d\n", s.EmploymentRecords)
		return nil
	},
}
