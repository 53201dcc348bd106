package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite <item-id> <on|off>",
	Short: "Mark or unmark an item as a favorite",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var isFavorite bool
		switch args[1] {
		case "on":
			isFavorite = true
		case "off":
			isFavorite = false
		default:
			return fmt.Errorf("second argument must be on or off, got %q", args[1])
		}

		client, store, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := client.SetFavorite(cmd.Context(), args[0], isFavorite); err != nil {
			return err
		}
		fmt.Printf("Item %s favorite set to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(favoriteCmd)
}
