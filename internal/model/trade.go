package model

import "time"

// Transaction is the immutable record of one completed sale. Exactly one
// exists per listing that ever reaches status=sold.
type Transaction struct {
	ID          string    `json:"trade_id"`
	ListingID   string    `json:"listing_id"`
	BuyerID     string    `json:"buyer_id"`
	BuyerName   string    `json:"buyer_name"`
	SellerID    string    `json:"seller_id"`
	SellerName  string    `json:"seller_name"`
	ItemType    string    `json:"item_type"`
	ItemName    string    `json:"item_name"`
	Quantity    int       `json:"quantity"`
	FinalPrice  int64     `json:"final_price"`
	CompletedAt time.Time `json:"completed_at"`
}

// MarketPriceRecord is one row per (item type, item name, calendar day),
// recomputed from that day's transactions.
type MarketPriceRecord struct {
	ItemType     string    `json:"item_type"`
	ItemName     string    `json:"item_name"`
	Day          time.Time `json:"day"`
	AveragePrice int64     `json:"average_price"`
	MinPrice     int64     `json:"min_price"`
	MaxPrice     int64     `json:"max_price"`
	Volume       int64     `json:"volume"`
	TradeCount   int       `json:"trade_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlayerReputation accumulates per-player trade counts and volume.
type PlayerReputation struct {
	PlayerID      string     `json:"player_id"`
	PlayerName    string     `json:"player_name"`
	SellerTrades  int        `json:"seller_trades"`
	BuyerTrades   int        `json:"buyer_trades"`
	CreditsTraded int64      `json:"credits_traded"`
	FirstTradeAt  *time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt   *time.Time `json:"last_trade_at,omitempty"`
}

// Score is a simple standing signal derived from trade counts: selling
// weighs double since sellers carry the listing-availability risk.
func (r *PlayerReputation) Score() int {
	return 2*r.SellerTrades + r.BuyerTrades
}
