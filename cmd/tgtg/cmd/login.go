package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the email confirmation flow",
	Long: `Starts the login handshake: the API emails a confirmation link to the
account address, and this command polls until the link is clicked (up to
10 minutes). The resulting session is stored under --data-dir and reused
by later commands. Interrupt with Ctrl-C to abort the wait.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, store, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		printBanner()
		fmt.Printf("Check the inbox of %s and click the confirmation link...\n", email)

		if err := client.Authenticate(ctx); err != nil {
			return err
		}

		creds := client.Credentials()
		fmt.Fprintf(os.Stdout, "Logged in as user %s; session stored in %s\n", creds.UserID, dataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
