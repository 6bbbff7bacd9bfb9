package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Vadko/lbk-launcher/internal/store"
	"github.com/Vadko/lbk-launcher/internal/ui"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the local mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Database: %s", a.store.Path())
			if info, err := os.Stat(a.store.Path()); err == nil {
				fmt.Fprintf(out, " (%s)", humanize.Bytes(uint64(info.Size())))
			}
			fmt.Fprintln(out)

			value, ok, err := a.repo.Meta(ctx, store.MetaLastSync)
			if err != nil {
				return err
			}
			switch {
			case !ok:
				fmt.Fprintf(out, "Last sync: %s\n", ui.Warn("never"))
			default:
				if at, err := time.Parse(time.RFC3339, value); err == nil {
					fmt.Fprintf(out, "Last sync: %s (%s)\n",
						at.Local().Format("2006-01-02 15:04:05"), humanize.Time(at))
				} else {
					fmt.Fprintf(out, "Last sync: %s\n", ui.Error("corrupt watermark "+value))
				}
			}

			counts, err := a.repo.Counts(ctx)
			if err != nil {
				return err
			}
			steamTitles, err := a.repo.CountDistinctSteamIDs(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Translations: %s unique titles\n",
				ui.Accent(fmt.Sprintf("%d", counts.Total)))
			fmt.Fprintf(out, "  completed    %d\n", counts.Completed)
			fmt.Fprintf(out, "  in progress  %d\n", counts.InProgress)
			fmt.Fprintf(out, "  planned      %d\n", counts.Planned)
			fmt.Fprintf(out, "  voiced       %d\n", counts.Voiced)
			fmt.Fprintf(out, "  AI-assisted  %d\n", counts.AITranslated)
			fmt.Fprintf(out, "Steam titles: %d\n", steamTitles)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}
