package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace"
	"github.com/kasw/orgtrace/internal/cli"
)

// seedRow is one JSON record of the hierarchy seed file.
type seedRow struct {
	Org             string   `json:"org"`
	URL             string   `json:"url"`
	SubParentOrgURL string   `json:"sub_parent_org_url"`
	EntityType      string   `json:"entity_type"`
	FirstObserved   string   `json:"first_observed"`
	LastObserved    string   `json:"last_observed"`
	Parts           []string `json:"parts"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Preseed the organization hierarchy",
	Long:  `Load an organization hierarchy seed file (JSON array) in one transaction.`,
	Example: `  orgtrace seed hierarchy.json`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return cli.DataError("reading seed file", err)
		}
		var rows []seedRow
		if err := json.Unmarshal(data, &rows); err != nil {
			return cli.DataError("parsing seed file", err)
		}

		seeds := make([]orgtrace.OrgSeed, len(rows))
		for i, r := range rows {
			seeds[i] = orgtrace.OrgSeed{
				Name:          r.Org,
				URL:           r.URL,
				ParentURL:     r.SubParentOrgURL,
				EntityType:    r.EntityType,
				FirstObserved: r.FirstObserved,
				LastObserved:  r.LastObserved,
				Parts:         r.Parts,
			}
		}

		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		res, err := h.PreseedOrganizations(ctx, seeds)
		if err != nil {
			return cli.GeneralError("preseeding organizations", err)
		}
		fmt.Printf("Created: %d, Updated: %d, Failed: %d\n", res.Created, res.Updated, res.Failed)
		return nil
	},
}
