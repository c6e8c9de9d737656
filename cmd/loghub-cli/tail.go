package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/loghub-go/pkg/httpclient"
)

func newTailCommand() *cobra.Command {
	var (
		replay     bool
		bufferSize int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live log stream",
		Long: `Follow the live log stream using Server-Sent Events.
With --replay the retained history is printed first. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runTail(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), httpclient.StreamConfig{
				Replay:     replay,
				BufferSize: bufferSize,
			}, asJSON)
		},
	}

	cmd.Flags().BoolVar(&replay, "replay", false, "Print the retained history before live lines")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 100, "Line buffer size")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each frame as JSON")
	return cmd
}

func runTail(ctx context.Context, out, errOut io.Writer, config httpclient.StreamConfig, asJSON bool) error {
	authCtx, cancel := requestContext()
	err := requireAuthentication(authCtx)
	cancel()
	if err != nil {
		return err
	}

	streamClient, err := client.Stream(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}
	defer streamClient.Close()

	fmt.Fprintf(errOut, "🌊 Tailing %s (Ctrl+C to stop)\n", serverURL)

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(errOut, "\n✅ Stream stopped. Received %d lines.\n", count)
			return nil

		case msg, ok := <-streamClient.Events():
			if !ok {
				fmt.Fprintf(errOut, "\n🔌 Stream closed. Received %d lines.\n", count)
				return nil
			}
			count++
			printStreamMessage(out, msg, asJSON)

		case err, ok := <-streamClient.Errors():
			if ok {
				// Non-fatal; the client reconnects
				fmt.Fprintf(errOut, "❌ Stream error: %v\n", err)
			}
		}
	}
}

func printStreamMessage(out io.Writer, msg httpclient.StreamMessage, asJSON bool) {
	if asJSON {
		b, err := json.Marshal(msg)
		if err == nil {
			fmt.Fprintln(out, string(b))
			return
		}
	}
	if msg.Replayed {
		fmt.Fprintf(out, "[history] %-5s %s\n", msg.Level, msg.Message)
		return
	}
	fmt.Fprintln(out, msg.Message)
}
