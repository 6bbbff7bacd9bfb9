package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vadko/lbk-launcher/internal/catalog"
	"github.com/Vadko/lbk-launcher/internal/store"
	"github.com/Vadko/lbk-launcher/internal/ui"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show details for one translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			game, err := a.repo.Get(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no translation with id %q", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", ui.Accent(game.Name))
			fmt.Fprintf(out, "Status: %s\n", game.Status)
			if game.Team != "" {
				fmt.Fprintf(out, "Team: %s\n", game.Team)
			}
			fmt.Fprintf(out, "Progress: translation %d%% · editing %d%% · voice %d%%\n",
				game.TranslationProgress, game.EditingProgress, game.VoiceProgress)
			if len(game.Platforms) > 0 {
				fmt.Fprintf(out, "Platforms: %s\n", strings.Join(game.Platforms, ", "))
			}

			printArchive(out, "Text archive", game.TextArchive)
			printArchive(out, "Voice archive", game.VoiceArchive)
			printArchive(out, "Achievements archive", game.AchievementsArchive)

			if game.Description != "" {
				fmt.Fprintf(out, "\n%s\n", game.Description)
			}
			return nil
		},
	}
}

func printArchive(out io.Writer, label string, a *catalog.Archive) {
	if a == nil {
		return
	}
	size := ""
	if bytes, err := catalog.ParseSize(a.Size); err == nil && bytes > 0 {
		size = " (" + catalog.FormatSize(bytes) + ")"
	}
	fmt.Fprintf(out, "%s: %s%s\n", label, a.URL, size)
}

func init() {
	rootCmd.AddCommand(newInfoCmd())
}
