package model

import (
	"errors"
	"time"
)

// Listing statuses. Active is the only non-terminal state; sold, cancelled
// and expired are terminal and never transition again.
const (
	StatusActive    = "active"
	StatusSold      = "sold"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Price categories derived from the item's recent daily average.
const (
	PriceBelowMarket = "below_market"
	PriceMarketRate  = "market_rate"
	PriceAboveMarket = "above_market"
)

var ErrInvalidStatus = errors.New("invalid listing status")

type Listing struct {
	ID          string     `json:"listing_id"`
	SellerID    string     `json:"seller_id"`
	SellerName  string     `json:"seller_name"`
	ItemType    string     `json:"item_type"`
	ItemName    string     `json:"item_name"`
	Quantity    int        `json:"quantity"`
	AskingPrice int64      `json:"asking_price"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	ListedAt    time.Time  `json:"listed_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	BuyerID     *string    `json:"buyer_id,omitempty"`
	BuyerName   *string    `json:"buyer_name,omitempty"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
}

// IsTerminal reports whether the listing reached a final state.
func (l *Listing) IsTerminal() bool {
	return l.Status == StatusSold || l.Status == StatusCancelled || l.Status == StatusExpired
}

// TotalPrice is the asking price of the whole listing. Purchases are
// whole-listing only, so this equals the final price of the eventual sale.
func (l *Listing) TotalPrice() int64 {
	return l.AskingPrice
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSold, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ListingView is a listing annotated with market-price context for browsing.
// MarketAverage and PriceCategory are omitted when the item has no price
// history yet.
type ListingView struct {
	Listing
	MarketAverage *int64 `json:"market_average,omitempty"`
	PriceCategory string `json:"price_category,omitempty"`
}

// CategorizePrice classifies an asking price against the item's daily
// average: below_market at or under 80% of the average, above_market at or
// over 120%, market_rate in between.
func CategorizePrice(askingPrice, dailyAverage int64) string {
	if dailyAverage <= 0 {
		return ""
	}
	avg := float64(dailyAverage)
	price := float64(askingPrice)
	switch {
	case price <= 0.8*avg:
		return PriceBelowMarket
	case price >= 1.2*avg:
		return PriceAboveMarket
	default:
		return PriceMarketRate
	}
}

type CreateListingRequest struct {
	SellerID    string `json:"seller_id"`
	SellerName  string `json:"seller_name"`
	ItemType    string `json:"item_type"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
	AskingPrice int64  `json:"asking_price"`
	Description string `json:"description"`
	TTLHours    int    `json:"ttl_hours"`
}

type SearchListingsRequest struct {
	ItemType   string `json:"item_type"`
	SearchText string `json:"search_text"`
	MinPrice   *int64 `json:"min_price,omitempty"`
	MaxPrice   *int64 `json:"max_price,omitempty"`
	SortBy     string `json:"sort_by"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

type BuyListingRequest struct {
	BuyerID   string `json:"buyer_id"`
	BuyerName string `json:"buyer_name"`
}

type CancelListingRequest struct {
	SellerID string `json:"seller_id"`
}
