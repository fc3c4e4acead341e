package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace/internal/cli"
)

var timelineDistinct bool

var timelineCmd = &cobra.Command{
	Use:   "timeline <org-id>",
	Short: "List the change dates of an organization subtree",
	Example: `  orgtrace timeline 42

  # Collapse dates with no structural change
  orgtrace timeline 42 --distinct`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var orgID int
		if _, err := fmt.Sscanf(args[0], "%d", &orgID); err != nil {
			return cli.DataError(fmt.Sprintf("bad org id %q", args[0]), err)
		}

		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		dates, err := h.OrgTimelineDates(ctx, orgID, timelineDistinct)
		if err != nil {
			return cli.GeneralError("building timeline", err)
		}
		if len(dates) == 0 {
			fmt.Println("No observation dates recorded.")
			return nil
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	},
}

func init() {
	timelineCmd.Flags().BoolVar(&timelineDistinct, "distinct", false, "drop dates with no structural change")
}
