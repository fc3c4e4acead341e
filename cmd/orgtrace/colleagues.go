package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace/internal/cli"
)

var (
	colleaguesDate  string
	colleaguesFuzzy bool
)

var colleaguesCmd = &cobra.Command{
	Use:   "colleagues <name>",
	Short: "List a person's colleagues",
	Example: `  # Colleagues across all time
  orgtrace colleagues "tan wei ming"

  # Colleagues on a date, with fuzzy name matching
  orgtrace colleagues "tan wei ming" --date 2020-06-01 --fuzzy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		colleagues, err := h.FindColleagues(ctx, args[0], colleaguesDate, colleaguesFuzzy)
		if err != nil {
			return cli.GeneralError("finding colleagues", err)
		}
		if len(colleagues) == 0 {
			fmt.Println("No colleagues found.")
			return nil
		}
		for _, c := range colleagues {
			if c.Rank != "" {
				fmt.Printf("%s\t%s\t%s\n", c.Name, c.Organization, c.Rank)
			} else {
				fmt.Printf("%s\t%s\n", c.Name, c.Organization)
			}
		}
		return nil
	},
}

func init() {
	f := colleaguesCmd.Flags()
	f.StringVar(&colleaguesDate, "date", "", "restrict to stints covering this date (YYYY-MM-DD)")
	f.BoolVar(&colleaguesFuzzy, "fuzzy", false, "resolve the name fuzzily first")
}
