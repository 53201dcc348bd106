package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/goodtogo/tgtg"
)

var (
	signupName       string
	signupCountry    string
	signupNewsletter bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if signupName == "" {
			return fmt.Errorf("--name is required")
		}

		password, err := promptSecret("Account password: ")
		if err != nil {
			return err
		}

		client, store, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		opts := []tgtg.SignUpOption{tgtg.WithCountry(signupCountry)}
		if signupNewsletter {
			opts = append(opts, tgtg.WithNewsletterOptIn())
		}

		if err := client.SignUpByEmail(cmd.Context(), email, password, signupName, opts...); err != nil {
			return err
		}

		creds := client.Credentials()
		fmt.Printf("Account created; logged in as user %s\n", creds.UserID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)
	signupCmd.Flags().StringVar(&signupName, "name", "", "Display name for the new account")
	signupCmd.Flags().StringVar(&signupCountry, "country", "GB", "ISO country code")
	signupCmd.Flags().BoolVar(&signupNewsletter, "newsletter", false, "Opt into the newsletter")
}
