package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rmacdonaldsmith/loghub-go/internal/config"
	"github.com/rmacdonaldsmith/loghub-go/internal/httpapi"
)

const (
	// Application info
	appName    = "loghub"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "In-process log hub with history and live tail",
		Long: `loghub keeps a bounded history of recent log lines and fans every new line
out to live subscribers. It serves the hub over an HTTP API with Server-Sent
Events streaming and, optionally, a gRPC console.

Configuration is read from --config (YAML), then .env and LOGHUB_* variables,
then any flags given on the command line.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := config.RegisterFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()
		return runServer(ctx, cfg)
	}

	cmd.AddCommand(newHashPasswordCommand())
	return cmd
}

func loadConfig(flags *config.Flags) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigFile())
	if err != nil {
		return nil, err
	}
	flags.Apply(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for http.admin_password_hash",
		Long: `Print a bcrypt hash of the admin password. The password is read from the
argument, or from stdin when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, args)
			if err != nil {
				return err
			}
			hash, err := httpapi.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(string(b), "\r\n")
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

// runServer blocks until ctx is cancelled or a listener fails
func runServer(ctx context.Context, cfg *config.Config) error {
	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	return app.run(ctx)
}
