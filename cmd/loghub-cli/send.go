package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/loghub-go/pkg/history"
	"github.com/rmacdonaldsmith/loghub-go/pkg/httpclient"
)

const sendBatchSize = 100

func newSendCommand() *cobra.Command {
	var (
		level     string
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Record a log line on the server",
		Long: `Record a log line on the server. The arguments are joined into one message.
With --stdin every input line becomes its own entry, sent in batches.`,
		Example: `  loghub-cli send --level warn "disk almost full"
  tail -f app.log | loghub-cli send --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := history.ParseLevel(level); err != nil {
				return err
			}
			if !fromStdin && len(args) == 0 {
				return fmt.Errorf("a message or --stdin is required")
			}

			ctx, cancel := requestContext()
			defer cancel()
			if err := requireAuthentication(ctx); err != nil {
				return err
			}

			if !fromStdin {
				entry := httpclient.IngestEntry{Level: level, Message: strings.Join(args, " ")}
				resp, err := client.Ingest(ctx, entry)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Recorded %d line(s)\n", resp.Accepted)
				return nil
			}
			return sendLines(cmd, level)
		},
	}

	cmd.Flags().StringVar(&level, "level", "info", "Level: error, warn, info, debug or trace")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read one message per line from stdin")
	return cmd
}

func sendLines(cmd *cobra.Command, level string) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	batch := make([]httpclient.IngestEntry, 0, sendBatchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ctx, cancel := requestContext()
		defer cancel()
		resp, err := client.Ingest(ctx, batch...)
		if err != nil {
			return err
		}
		total += resp.Accepted
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		batch = append(batch, httpclient.IngestEntry{Level: level, Message: line})
		if len(batch) == sendBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Recorded %d line(s)\n", total)
	return nil
}
