package service

import (
	"context"
	"log"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
)

// StatsService maintains the two read models derived from the transaction
// log: daily market price records and per-player reputation. Both are
// best-effort and never gate a purchase; a missed update can be replayed
// from the transaction log later.
type StatsService struct {
	transactions TransactionStore
	stats        StatsStore
	timeout      time.Duration
}

func NewStatsService(transactions TransactionStore, stats StatsStore) *StatsService {
	return &StatsService{
		transactions: transactions,
		stats:        stats,
		timeout:      10 * time.Second,
	}
}

// Record folds one completed transaction into the price and reputation
// read models. Replay-protected by a compare-and-set flag on the
// transaction row, so at-least-once delivery applies each trade once.
func (s *StatsService) Record(ctx context.Context, t *model.Transaction) error {
	claimed, err := s.transactions.MarkStatsRecorded(ctx, t.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	// The price record is recomputed from the day's transactions, so even a
	// partial failure here converges on the next recompute for the item.
	if err := s.stats.RecomputePriceRecord(ctx, t.ItemType, t.ItemName, t.CompletedAt); err != nil {
		log.Printf("[STATS] price record update failed for %s/%s: %v", t.ItemType, t.ItemName, err)
	}

	if err := s.stats.ApplyTrade(ctx, t.SellerID, t.SellerName, t.FinalPrice, t.CompletedAt, true); err != nil {
		log.Printf("[STATS] seller reputation update failed for %s: %v", t.SellerID, err)
	}
	if err := s.stats.ApplyTrade(ctx, t.BuyerID, t.BuyerName, t.FinalPrice, t.CompletedAt, false); err != nil {
		log.Printf("[STATS] buyer reputation update failed for %s: %v", t.BuyerID, err)
	}
	return nil
}

// RecordAsync runs Record on its own goroutine with a fresh deadline. Called
// post-commit from the purchase path; errors are logged, never propagated.
func (s *StatsService) RecordAsync(t *model.Transaction) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Record(ctx, t); err != nil {
			log.Printf("[STATS] aggregation failed for transaction %s: %v", t.ID, err)
		}
	}()
}

func (s *StatsService) Reputation(ctx context.Context, playerID string) (*model.PlayerReputation, error) {
	return s.stats.GetReputation(ctx, playerID)
}

func (s *StatsService) LatestPrices(ctx context.Context) ([]model.MarketPriceRecord, error) {
	return s.stats.LatestPriceRecords(ctx)
}

func (s *StatsService) PriceHistory(ctx context.Context, itemType, itemName string, days int) ([]model.MarketPriceRecord, error) {
	return s.stats.PriceHistory(ctx, itemType, itemName, days)
}

func (s *StatsService) MarketCounts(ctx context.Context) (map[string]int64, error) {
	return s.stats.Counts(ctx)
}
