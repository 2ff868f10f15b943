package service

import (
	"context"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
)

// ListingStore is the durable source of truth for listing existence and
// status. Implemented by repository.ListingRepository.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing, ownedQuantity, maxPerItem int) (*model.Listing, int, error)
	ReservedQuantity(ctx context.Context, sellerID, itemType string) (int, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	Search(ctx context.Context, req *model.SearchListingsRequest) ([]model.Listing, int, error)
	GetBySellerID(ctx context.Context, sellerID, status string) ([]model.Listing, error)
	MarkSold(ctx context.Context, id, buyerID, buyerName string) (*model.Listing, error)
	ReopenSold(ctx context.Context, id string) error
	Cancel(ctx context.Context, id, sellerID string) (*model.Listing, error)
	ExpireOld(ctx context.Context) (int64, error)
}

// TransactionStore persists immutable trade records.
type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	GetByPlayer(ctx context.Context, playerID string, limit int) ([]model.Transaction, error)
	MarkStatsRecorded(ctx context.Context, transactionID string) (bool, error)
}

// StatsStore persists market price records and player reputations.
type StatsStore interface {
	RecomputePriceRecord(ctx context.Context, itemType, itemName string, day time.Time) error
	LatestPriceRecords(ctx context.Context) ([]model.MarketPriceRecord, error)
	PriceHistory(ctx context.Context, itemType, itemName string, days int) ([]model.MarketPriceRecord, error)
	ApplyTrade(ctx context.Context, playerID, playerName string, amount int64, tradedAt time.Time, asSeller bool) error
	GetReputation(ctx context.Context, playerID string) (*model.PlayerReputation, error)
	Counts(ctx context.Context) (map[string]int64, error)
}

// InventoryLedger is the external collaborator that owns player inventories.
// Reads are point-in-time snapshots, never held across the listing insert.
type InventoryLedger interface {
	GetOwnedQuantity(ctx context.Context, playerID, itemType string) (int, error)
}

// Wallet is the external collaborator that owns player credit balances.
type Wallet interface {
	GetBalance(ctx context.Context, playerID string) (int64, error)
	Debit(ctx context.Context, playerID string, amount int64) error
	Credit(ctx context.Context, playerID string, amount int64) error
}
