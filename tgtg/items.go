package tgtg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListOption configures an item search.
type ListOption func(*listOptions)

// listOptions mirrors the filter document the mobile app sends, with the
// app's defaults.
type listOptions struct {
	latitude       float64
	longitude      float64
	radius         int
	pageSize       int
	page           int
	discover       bool
	favoritesOnly  bool
	itemCategories []string
	dietCategories []string
	pickupEarliest string
	pickupLatest   string
	searchPhrase   string
	withStockOnly  bool
	hiddenOnly     bool
	weCareOnly     bool
}

// WithOrigin sets the search origin coordinates. Default: 0,0.
func WithOrigin(latitude, longitude float64) ListOption {
	return func(o *listOptions) {
		o.latitude = latitude
		o.longitude = longitude
	}
}

// WithRadius sets the search radius in kilometres. Default: 21.
func WithRadius(km int) ListOption {
	return func(o *listOptions) {
		o.radius = km
	}
}

// WithPage sets the result page, 1-based. Default: 1.
func WithPage(page int) ListOption {
	return func(o *listOptions) {
		o.page = page
	}
}

// WithPageSize sets the result page size. Default: 20.
func WithPageSize(size int) ListOption {
	return func(o *listOptions) {
		o.pageSize = size
	}
}

// WithDiscover enables the app's discover mode.
func WithDiscover() ListOption {
	return func(o *listOptions) {
		o.discover = true
	}
}

// WithFavoritesOnly controls whether only favorited stores are searched.
// Default: true, matching the mobile app.
func WithFavoritesOnly(favoritesOnly bool) ListOption {
	return func(o *listOptions) {
		o.favoritesOnly = favoritesOnly
	}
}

// WithItemCategories filters by item category identifiers.
func WithItemCategories(categories ...string) ListOption {
	return func(o *listOptions) {
		o.itemCategories = categories
	}
}

// WithDietCategories filters by diet category identifiers.
func WithDietCategories(categories ...string) ListOption {
	return func(o *listOptions) {
		o.dietCategories = categories
	}
}

// WithPickupWindow restricts results to pickups inside the given window.
// Times use the API's "yyyy-MM-ddTHH:mm:ssZ" format; either bound may be
// empty.
func WithPickupWindow(earliest, latest string) ListOption {
	return func(o *listOptions) {
		o.pickupEarliest = earliest
		o.pickupLatest = latest
	}
}

// WithSearchPhrase filters results by free-text search.
func WithSearchPhrase(phrase string) ListOption {
	return func(o *listOptions) {
		o.searchPhrase = phrase
	}
}

// WithStockOnly restricts results to items currently in stock.
func WithStockOnly() ListOption {
	return func(o *listOptions) {
		o.withStockOnly = true
	}
}

// WithHiddenOnly restricts results to stores the user has hidden.
func WithHiddenOnly() ListOption {
	return func(o *listOptions) {
		o.hiddenOnly = true
	}
}

// WithWeCareOnly restricts results to "we care" items.
func WithWeCareOnly() ListOption {
	return func(o *listOptions) {
		o.weCareOnly = true
	}
}

type origin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Field order follows the mobile app's request document.
type itemSearchRequest struct {
	UserID         string   `json:"user_id"`
	Origin         origin   `json:"origin"`
	Radius         int      `json:"radius"`
	PageSize       int      `json:"page_size"`
	Page           int      `json:"page"`
	Discover       bool     `json:"discover"`
	FavoritesOnly  bool     `json:"favorites_only"`
	ItemCategories []string `json:"item_categories"`
	DietCategories []string `json:"diet_categories"`
	PickupEarliest *string  `json:"pickup_earliest"`
	PickupLatest   *string  `json:"pickup_latest"`
	SearchPhrase   *string  `json:"search_phrase"`
	WithStockOnly  bool     `json:"with_stock_only"`
	HiddenOnly     bool     `json:"hidden_only"`
	WeCareOnly     bool     `json:"we_care_only"`
}

// ListItems searches for surplus-food items and returns the raw item
// documents. The item schema is vendor-controlled and passed through
// unmodified.
func (c *Client) ListItems(ctx context.Context, opts ...ListOption) ([]json.RawMessage, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	creds := c.Credentials()

	o := listOptions{
		radius:        21,
		pageSize:      20,
		page:          1,
		favoritesOnly: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	req := itemSearchRequest{
		UserID:         creds.UserID,
		Origin:         origin{Latitude: o.latitude, Longitude: o.longitude},
		Radius:         o.radius,
		PageSize:       o.pageSize,
		Page:           o.page,
		Discover:       o.discover,
		FavoritesOnly:  o.favoritesOnly,
		ItemCategories: emptyIfNil(o.itemCategories),
		DietCategories: emptyIfNil(o.dietCategories),
		PickupEarliest: nilIfEmpty(o.pickupEarliest),
		PickupLatest:   nilIfEmpty(o.pickupLatest),
		SearchPhrase:   nilIfEmpty(o.searchPhrase),
		WithStockOnly:  o.withStockOnly,
		HiddenOnly:     o.hiddenOnly,
		WeCareOnly:     o.weCareOnly,
	}

	status, body, err := c.post(ctx, itemEndpoint, req, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: body}
	}

	var result struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding item search response: %w", err)
	}
	return result.Items, nil
}

// GetItem fetches the full document for a single item.
func (c *Client) GetItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	creds := c.Credentials()

	req := struct {
		UserID string  `json:"user_id"`
		Origin *origin `json:"origin"`
	}{UserID: creds.UserID}

	status, body, err := c.post(ctx, itemEndpoint+itemID, req, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: body}
	}
	return json.RawMessage(body), nil
}

// SetFavorite marks or unmarks an item as a favorite.
func (c *Client) SetFavorite(ctx context.Context, itemID string, isFavorite bool) error {
	if err := c.Authenticate(ctx); err != nil {
		return err
	}
	creds := c.Credentials()

	req := struct {
		IsFavorite bool `json:"is_favorite"`
	}{IsFavorite: isFavorite}

	status, body, err := c.post(ctx, itemEndpoint+itemID+"/setFavorite", req, creds.AccessToken)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{StatusCode: status, Body: body}
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
