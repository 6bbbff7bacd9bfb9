package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Vadko/lbk-launcher/internal/ui"
)

func newSyncCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local mirror with the catalog service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)

			a, err := openApp(logger)
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orchestrator(logger, nil)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Syncing catalog"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionThrottle(200*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)

			ctx := cmd.Context()
			start := time.Now()

			done := make(chan error, 1)
			go func() {
				if full {
					done <- o.FullSync(ctx)
				} else {
					done <- o.Sync(ctx)
				}
			}()

			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
		wait:
			for {
				select {
				case err = <-done:
					break wait
				case <-ticker.C:
					_ = bar.Add(1)
				}
			}
			_ = bar.Finish()
			if err != nil {
				return err
			}

			counts, err := a.repo.Counts(ctx)
			if err != nil {
				return fmt.Errorf("failed to read catalog counts: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Synced %s translations in %v\n",
				ui.Pass("✓"),
				ui.Accent(fmt.Sprintf("%d", counts.Total)),
				time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(cmd.OutOrStdout(), "  completed %d · in progress %d · planned %d\n",
				counts.Completed, counts.InProgress, counts.Planned)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "force a full resync instead of an incremental one")
	return cmd
}

func init() {
	rootCmd.AddCommand(newSyncCmd())
}
