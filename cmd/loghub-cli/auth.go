package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the loghub server",
		Long: `Authenticate with the loghub server using your client ID.
This prints a JWT token that can be reused with --token or LOGHUB_TOKEN.
The admin client also needs --password when the server has one configured.`,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	if clientID == "" {
		return fmt.Errorf("client-id is required")
	}

	ctx, cancel := requestContext()
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Authenticating with server %s as client %s...\n", serverURL, clientID)

	resp, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Authentication successful!\n")
	if resp.IsAdmin {
		fmt.Fprintf(out, "Admin: yes\n")
	}
	fmt.Fprintf(out, "Expires: %s\n", resp.ExpiresAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Token: %s\n", resp.Token)
	fmt.Fprintf(out, "\nSave it for later commands:\n")
	fmt.Fprintf(out, "  export LOGHUB_TOKEN=\"%s\"\n", resp.Token)
	return nil
}
