package client

import (
	"context"
	"fmt"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"

	"github.com/go-resty/resty/v2"
)

// DefaultCooldown is the minimum interval between repeated mutating requests
// of the same kind.
const DefaultCooldown = 2 * time.Second

// APIError is a rejection returned by the marketplace server.
type APIError struct {
	StatusCode      int    `json:"-"`
	Message         string `json:"error"`
	AvailableToList *int   `json:"available_to_list,omitempty"`
}

func (e *APIError) Error() string {
	if e.AvailableToList != nil {
		return fmt.Sprintf("marketplace: %s (available_to_list=%d)", e.Message, *e.AvailableToList)
	}
	return "marketplace: " + e.Message
}

// MarketClient talks to the trading marketplace on behalf of one player.
type MarketClient struct {
	http       *resty.Client
	gov        *Governor
	cache      *ListingCache
	playerID   string
	playerName string
}

type Option func(*MarketClient)

// WithClock injects a clock into the request governor (used by tests).
func WithClock(clock Clock) Option {
	return func(c *MarketClient) {
		c.gov = NewGovernor(c.gov.minInterval, clock)
	}
}

// WithCooldown overrides the duplicate-submission cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *MarketClient) {
		c.gov = NewGovernor(d, c.gov.clock)
	}
}

func New(baseURL, playerID, playerName string, opts ...Option) *MarketClient {
	c := &MarketClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
		gov:        NewGovernor(DefaultCooldown, nil),
		cache:      NewListingCache(),
		playerID:   playerID,
		playerName: playerName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the local listing cache for the UI to read by reference.
func (c *MarketClient) Cache() *ListingCache {
	return c.cache
}

// EstimateAvailableToList gives instant local feedback on how many units of
// an item the player could still list, from owned stock (known to the game
// locally) minus cached reservations. The server re-validates on create.
func (c *MarketClient) EstimateAvailableToList(ownedQuantity int, itemType string) int {
	available := ownedQuantity - c.cache.ReservedQuantity(itemType)
	if available < 0 {
		return 0
	}
	return available
}

type listingsEnvelope struct {
	Listings []model.ListingView `json:"listings"`
	Total    int                 `json:"total"`
}

type myListingsEnvelope struct {
	Listings []model.Listing `json:"listings"`
}

type listingEnvelope struct {
	Listing *model.Listing `json:"listing"`
}

type transactionEnvelope struct {
	Transaction *model.Transaction `json:"transaction"`
}

type tradesEnvelope struct {
	Trades []model.Transaction `json:"trades"`
	Total  int                 `json:"total"`
}

// Reputation is the server's reputation summary for one player.
type Reputation struct {
	PlayerID        string     `json:"player_id"`
	PlayerName      string     `json:"player_name"`
	SellerTrades    int        `json:"seller_trades"`
	BuyerTrades     int        `json:"buyer_trades"`
	CreditsTraded   int64      `json:"credits_traded"`
	ReputationScore int        `json:"reputation_score"`
	FirstTradeAt    *time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt     *time.Time `json:"last_trade_at,omitempty"`
}

func apiError(resp *resty.Response) error {
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil || apiErr.Message == "" {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}

// RefreshListings pulls the current page of active listings into the cache.
func (c *MarketClient) RefreshListings(ctx context.Context) error {
	var out listingsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{}).
		Get("/api/v1/market/listings")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	c.cache.SetActive(out.Listings, time.Now())
	return nil
}

// RefreshMyListings pulls the player's own listings into the cache.
func (c *MarketClient) RefreshMyListings(ctx context.Context) error {
	var out myListingsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{}).
		SetQueryParam("seller_id", c.playerID).
		Get("/api/v1/market/my-listings")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	c.cache.SetMine(out.Listings)
	return nil
}

func (c *MarketClient) refreshAfterMutation(ctx context.Context) {
	// Best effort: a failed refresh leaves the cache stale, which the next
	// poll corrects.
	_ = c.RefreshListings(ctx)
	_ = c.RefreshMyListings(ctx)
}

// CreateListing lists items for sale. Duplicate submissions within the
// cooldown window are suppressed locally with ErrCooldown.
func (c *MarketClient) CreateListing(ctx context.Context, itemType, itemName string, quantity int, askingPrice int64, description string, ttlHours int) (*model.Listing, error) {
	if !c.gov.Allow("create_listing") {
		return nil, ErrCooldown
	}

	req := model.CreateListingRequest{
		SellerID:    c.playerID,
		SellerName:  c.playerName,
		ItemType:    itemType,
		ItemName:    itemName,
		Quantity:    quantity,
		AskingPrice: askingPrice,
		Description: description,
		TTLHours:    ttlHours,
	}
	var out listingEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/api/v1/market/listings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	c.refreshAfterMutation(ctx)
	return out.Listing, nil
}

// Purchase buys a whole listing.
func (c *MarketClient) Purchase(ctx context.Context, listingID string) (*model.Transaction, error) {
	if !c.gov.Allow("purchase") {
		return nil, ErrCooldown
	}

	req := model.BuyListingRequest{BuyerID: c.playerID, BuyerName: c.playerName}
	var out transactionEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/api/v1/market/listings/" + listingID + "/buy")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	c.refreshAfterMutation(ctx)
	return out.Transaction, nil
}

// CancelListing cancels the player's own active listing.
func (c *MarketClient) CancelListing(ctx context.Context, listingID string) error {
	if !c.gov.Allow("cancel_listing") {
		return ErrCooldown
	}

	req := model.CancelListingRequest{SellerID: c.playerID}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetError(&APIError{}).
		Delete("/api/v1/market/listings/" + listingID)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	c.refreshAfterMutation(ctx)
	return nil
}

// TradeHistory fetches the player's completed trades, most recent first.
func (c *MarketClient) TradeHistory(ctx context.Context) ([]model.Transaction, error) {
	var out tradesEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{}).
		Get("/api/v1/market/history/" + c.playerID)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return out.Trades, nil
}

// GetReputation fetches any player's trade reputation.
func (c *MarketClient) GetReputation(ctx context.Context, playerID string) (*Reputation, error) {
	var out Reputation
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{}).
		Get("/api/v1/players/" + playerID + "/reputation")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &out, nil
}
