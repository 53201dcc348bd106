package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/goodtogo/tgtg"
)

var (
	lat           float64
	lng           float64
	radius        int
	page          int
	pageSize      int
	favoritesOnly bool
	discover      bool
	withStock     bool
	searchPhrase  string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List surplus-food items near a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, store, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		opts := []tgtg.ListOption{
			tgtg.WithOrigin(lat, lng),
			tgtg.WithRadius(radius),
			tgtg.WithPage(page),
			tgtg.WithPageSize(pageSize),
			tgtg.WithFavoritesOnly(favoritesOnly),
		}
		if discover {
			opts = append(opts, tgtg.WithDiscover())
		}
		if withStock {
			opts = append(opts, tgtg.WithStockOnly())
		}
		if searchPhrase != "" {
			opts = append(opts, tgtg.WithSearchPhrase(searchPhrase))
		}

		items, err := client.ListItems(cmd.Context(), opts...)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("printing items: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.Flags().Float64Var(&lat, "lat", 0, "Origin latitude")
	itemsCmd.Flags().Float64Var(&lng, "lng", 0, "Origin longitude")
	itemsCmd.Flags().IntVar(&radius, "radius", 21, "Search radius in km")
	itemsCmd.Flags().IntVar(&page, "page", 1, "Result page")
	itemsCmd.Flags().IntVar(&pageSize, "page-size", 20, "Result page size")
	itemsCmd.Flags().BoolVar(&favoritesOnly, "favorites-only", true, "Search favorited stores only")
	itemsCmd.Flags().BoolVar(&discover, "discover", false, "Enable discover mode")
	itemsCmd.Flags().BoolVar(&withStock, "with-stock", false, "Only items currently in stock")
	itemsCmd.Flags().StringVar(&searchPhrase, "search", "", "Free-text search phrase")
}
