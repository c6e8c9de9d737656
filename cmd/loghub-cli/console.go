package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rmacdonaldsmith/loghub-go/internal/console"
)

func newConsoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Use the gRPC console",
		Long:  "Query the hub through the gRPC console (server started with --grpc). Address from --console.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Print the retained history",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := console.Dial(consoleAddr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := requestContext()
			defer cancel()
			events, err := c.History(ctx)
			if err != nil {
				return err
			}
			for _, event := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s\n", event.Level, event.Message)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the hub snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := console.Dial(consoleAddr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := requestContext()
			defer cancel()
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.Available {
				fmt.Fprintf(out, "History: %d / %d\n", st.Length, st.Capacity)
			} else {
				fmt.Fprintf(out, "History: poisoned (capacity %d)\n", st.Capacity)
			}
			fmt.Fprintf(out, "Subscribers: %d\n", st.Subscribers)
			return nil
		},
	})

	var replay bool
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live stream over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := console.Dial(consoleAddr)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tail, err := c.Tail(ctx, replay)
			if err != nil {
				return err
			}
			for {
				line, err := tail.Recv()
				switch {
				case err == nil:
					fmt.Fprintln(cmd.OutOrStdout(), line)
				case errors.Is(err, io.EOF), status.Code(err) == codes.Canceled:
					return nil
				case status.Code(err) == codes.ResourceExhausted:
					return fmt.Errorf("dropped by server for falling behind: %w", err)
				default:
					return err
				}
			}
		},
	}
	tailCmd.Flags().BoolVar(&replay, "replay", false, "Print the retained history first")
	cmd.AddCommand(tailCmd)

	return cmd
}
