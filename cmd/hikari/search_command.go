package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hikari/internal/catalog"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog for anime titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newCatalogClient(ctx.configValue())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			titles, err := client.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search catalog: %w", err)
			}
			if len(titles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No anime found matching %q.\n", query)
				return nil
			}

			rows := make([][]string, 0, len(titles))
			for i, title := range titles {
				rows = append(rows, []string{strconv.Itoa(i + 1), catalog.DisplayName(title), title.ID})
			}
			table := renderTable(
				[]string{"#", "Title", "ID"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
