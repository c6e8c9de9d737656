package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"debug"},
		Short:   "Show the hub debug view",
		Long:    "Show the hub's debug rendering, e.g. Hub{history_len: 3}, and the retained count.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()
			if err := requireAuthentication(ctx); err != nil {
				return err
			}

			resp, err := client.Debug(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.View)
			fmt.Fprintf(cmd.OutOrStdout(), "History length: %v\n", resp.HistoryLength)
			return nil
		},
	}
}
