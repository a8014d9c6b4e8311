package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <anime-id>",
		Short: "List the episodes of an anime title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newCatalogClient(ctx.configValue())
			if err != nil {
				return err
			}

			episodes, err := client.Episodes(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list episodes: %w", err)
			}
			if len(episodes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No episodes found for that anime.")
				return nil
			}

			rows := make([][]string, 0, len(episodes))
			for _, episode := range episodes {
				rows = append(rows, []string{episode.Label, episode.Handle})
			}
			table := renderTable(
				[]string{"Episode", "Handle"},
				rows,
				[]columnAlignment{alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
