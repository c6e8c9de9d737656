package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/loghub-go/pkg/loghub"
)

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin commands (requires admin privileges)",
		Long:  "Administrative commands for monitoring and repairing the hub",
	}

	cmd.AddCommand(newAdminStatsCommand())
	cmd.AddCommand(newAdminRecoverCommand())
	return cmd
}

func newAdminStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hub statistics",
		Long:  "Display the hub counters and the current snapshot",
		RunE:  runAdminStats,
	}
}

func newAdminRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Clear poisoned hub state",
		Long: `Clear the poisoned flag on the history and the subscriber registry.
History retained before the failure is kept as is.`,
		RunE: runAdminRecover,
	}
}

func runAdminStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()
	if err := requireAuthentication(ctx); err != nil {
		return err
	}

	resp, err := client.AdminGetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📊 loghub statistics:\n\n")
	fmt.Fprintf(out, "Recorded: %d\n", resp.Stats.Recorded)
	fmt.Fprintf(out, "Delivered: %d\n", resp.Stats.Delivered)
	fmt.Fprintf(out, "Subscribers pruned: %d\n", resp.Stats.Pruned)
	fmt.Fprintf(out, "History skipped: %d\n", resp.Stats.HistorySkipped)
	fmt.Fprintf(out, "Broadcast skipped: %d\n", resp.Stats.BroadcastSkipped)
	fmt.Fprintf(out, "Panics contained: %d\n", resp.Stats.Panics)
	fmt.Fprintln(out)
	printSnapshot(out, resp.Snapshot)
	return nil
}

func runAdminRecover(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext()
	defer cancel()
	if err := requireAuthentication(ctx); err != nil {
		return err
	}

	resp, err := client.AdminRecover(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Recovered\n\n")
	printSnapshot(out, resp.Snapshot)
	return nil
}

func printSnapshot(out io.Writer, snap loghub.Snapshot) {
	if snap.HistoryAvailable {
		fmt.Fprintf(out, "History: %d / %d\n", snap.Length, snap.Capacity)
	} else {
		fmt.Fprintf(out, "History: poisoned (capacity %d)\n", snap.Capacity)
	}
	if snap.SubscribersAvailable {
		fmt.Fprintf(out, "Subscribers: %d\n", snap.Subscribers)
	} else {
		fmt.Fprintf(out, "Subscribers: poisoned\n")
	}
}
