package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the retained log history",
		Long:  "Print the retained log events, oldest first. Use --limit to see only the newest N.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			if err := requireAuthentication(ctx); err != nil {
				return err
			}

			resp, err := client.History(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			for _, event := range resp.Events {
				fmt.Fprintf(out, "%-5s %s\n", event.Level, event.Message)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "-- %d of %d retained --\n", resp.Count, resp.Capacity)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the newest N events (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}
