package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Vadko/lbk-launcher/internal/catalog"
	"github.com/Vadko/lbk-launcher/internal/store"
)

func newListCmd() *cobra.Command {
	var (
		statuses  []string
		search    string
		authors   []string
		excludeAI bool
		sortBy    string
		limit     int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List translations in the local mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := store.Filter{
				Search:    search,
				Authors:   authors,
				ExcludeAI: excludeAI,
				Sort:      store.SortOrder(sortBy),
				Limit:     limit,
			}
			for _, s := range statuses {
				status := catalog.Status(s)
				switch status {
				case catalog.StatusPlanned, catalog.StatusInProgress, catalog.StatusCompleted:
					filter.Statuses = append(filter.Statuses, status)
				default:
					return fmt.Errorf("invalid status %q (valid: planned, in-progress, completed)", s)
				}
			}

			games, err := a.repo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(games)
			case "table":
				renderGameTable(cmd, games)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (planned, in-progress, completed)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "full-text search query")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "filter by translation team")
	cmd.Flags().BoolVar(&excludeAI, "no-ai", false, "exclude AI-translated entries")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "sort order: name, downloads, newest")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "limit the number of results (0 = all)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	return cmd
}

func renderGameTable(cmd *cobra.Command, games []*catalog.Game) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Name", "Status", "Progress", "Team", "Downloads"})

	for _, g := range games {
		downloads := ""
		if g.Downloads != nil {
			downloads = humanize.Comma(*g.Downloads)
		}
		t.AppendRow(table.Row{
			g.Name,
			string(g.Status),
			fmt.Sprintf("%d%%", g.TranslationProgress),
			g.Team,
			downloads,
		})
	}

	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d translation(s)\n", len(games))
}

func init() {
	rootCmd.AddCommand(newListCmd())
}
