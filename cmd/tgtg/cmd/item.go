package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var itemCmd = &cobra.Command{
	Use:   "item <item-id>",
	Short: "Show the full document for a single item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, store, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := client.GetItem(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("printing item: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemCmd)
}
