package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	baseURL  string
	email    string
	language string
	dataDir  string
	timeout  time.Duration
	sealed   bool
)

var rootCmd = &cobra.Command{
	Use:   "tgtg",
	Short: "tgtg is a command-line client for Too Good To Go",
	Long: `A command-line client for the Too Good To Go surplus-food API.
Log in once with the email confirmation flow; the session is stored locally
and refreshed automatically on later calls.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override the API base URL")
	rootCmd.PersistentFlags().StringVarP(&email, "email", "e", "", "Account email address")
	rootCmd.PersistentFlags().StringVar(&language, "language", "en-GB", "Accept-language tag")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory for the stored session")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&sealed, "sealed", false, "Seal the stored session with a passphrase")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tgtg"
	}
	return home + "/.tgtg"
}
