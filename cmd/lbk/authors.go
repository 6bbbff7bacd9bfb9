package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authors",
		Short: "List translation teams present in the local mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			authors, err := a.repo.Authors(cmd.Context())
			if err != nil {
				return err
			}
			for _, author := range authors {
				fmt.Fprintln(cmd.OutOrStdout(), author)
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newAuthorsCmd())
}
