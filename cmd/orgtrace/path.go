package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace"
	"github.com/kasw/orgtrace/internal/cli"
)

var (
	pathTemporal   bool
	pathPeopleOnly bool
	pathMetadata   bool
)

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Find the shortest path between two people",
	Long: `Find the shortest path between two names over the employment graph.
With --temporal, every hop requires overlapping tenure at a shared
unit.`,
	Example: `  orgtrace path "tan wei ming" "lim hui fen"

  # Only through people who actually overlapped
  orgtrace path "tan wei ming" "lim hui fen" --temporal`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		res, err := h.ShortestPath(ctx, []string{args[0]}, []string{args[1]}, orgtrace.PathRequest{
			Temporal:        pathTemporal,
			PeopleOnly:      pathPeopleOnly,
			IncludeMetadata: pathMetadata,
		})
		if err != nil {
			return cli.GeneralError("finding path", err)
		}
		if res == nil {
			fmt.Println("No path found.")
			return nil
		}

		names := make([]string, len(res.Nodes))
		for i, n := range res.Nodes {
			names[i] = n.Name
		}
		fmt.Println(strings.Join(names, " -> "))

		for _, step := range res.Steps {
			for _, s := range step.Stints {
				fmt.Printf("  %s @ %s: %s (%s to %s)\n",
					step.From.Name, step.To.Name, s.Rank,
					s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
			}
		}
		return nil
	},
}

func init() {
	f := pathCmd.Flags()
	f.BoolVar(&pathTemporal, "temporal", false, "require overlapping tenure on every hop")
	f.BoolVar(&pathPeopleOnly, "people-only", false, "drop unit nodes from the path")
	f.BoolVar(&pathMetadata, "metadata", false, "show employment stints per hop")
}
