package repository

import (
	"context"
	"errors"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// RecomputePriceRecord rebuilds the (item, day) price row from that day's
// transactions. Pure function of the transaction log, so replaying it after
// a partial failure converges on the same row.
func (r *StatsRepository) RecomputePriceRecord(ctx context.Context, itemType, itemName string, day time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market_price_records (
			item_type, item_name, day,
			average_price, min_price, max_price, volume, trade_count, updated_at
		)
		SELECT $1, $2, $3::date,
		       ROUND(AVG(final_price))::bigint, MIN(final_price), MAX(final_price),
		       COALESCE(SUM(quantity), 0), COUNT(*), NOW()
		FROM transactions
		WHERE item_type = $1 AND item_name = $2
		  AND completed_at >= $3::date
		  AND completed_at < $3::date + INTERVAL '1 day'
		HAVING COUNT(*) > 0
		ON CONFLICT (item_type, item_name, day) DO UPDATE SET
			average_price = EXCLUDED.average_price,
			min_price     = EXCLUDED.min_price,
			max_price     = EXCLUDED.max_price,
			volume        = EXCLUDED.volume,
			trade_count   = EXCLUDED.trade_count,
			updated_at    = NOW()
	`, itemType, itemName, day)
	return err
}

// LatestPriceRecords returns the most recent day's record per item, used to
// annotate browse results with market context.
func (r *StatsRepository) LatestPriceRecords(ctx context.Context) ([]model.MarketPriceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (item_type, item_name)
		       item_type, item_name, day, average_price, min_price, max_price,
		       volume, trade_count, updated_at
		FROM market_price_records
		ORDER BY item_type, item_name, day DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

// PriceHistory returns up to days of records for one item, newest first.
func (r *StatsRepository) PriceHistory(ctx context.Context, itemType, itemName string, days int) ([]model.MarketPriceRecord, error) {
	if days <= 0 || days > 90 {
		days = 30
	}
	rows, err := r.pool.Query(ctx, `
		SELECT item_type, item_name, day, average_price, min_price, max_price,
		       volume, trade_count, updated_at
		FROM market_price_records
		WHERE item_type = $1 AND item_name = $2
		ORDER BY day DESC
		LIMIT $3
	`, itemType, itemName, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

func scanPriceRecords(rows pgx.Rows) ([]model.MarketPriceRecord, error) {
	records := []model.MarketPriceRecord{}
	for rows.Next() {
		var rec model.MarketPriceRecord
		if err := rows.Scan(
			&rec.ItemType, &rec.ItemName, &rec.Day, &rec.AveragePrice, &rec.MinPrice,
			&rec.MaxPrice, &rec.Volume, &rec.TradeCount, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ApplyTrade folds one completed transaction into a party's reputation row.
// asSeller picks which trade counter is bumped.
func (r *StatsRepository) ApplyTrade(ctx context.Context, playerID, playerName string, amount int64, tradedAt time.Time, asSeller bool) error {
	sellerInc, buyerInc := 0, 1
	if asSeller {
		sellerInc, buyerInc = 1, 0
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO player_reputations (
			player_id, player_name, seller_trades, buyer_trades,
			credits_traded, first_trade_at, last_trade_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (player_id) DO UPDATE SET
			player_name    = EXCLUDED.player_name,
			seller_trades  = player_reputations.seller_trades + EXCLUDED.seller_trades,
			buyer_trades   = player_reputations.buyer_trades + EXCLUDED.buyer_trades,
			credits_traded = player_reputations.credits_traded + EXCLUDED.credits_traded,
			first_trade_at = COALESCE(player_reputations.first_trade_at, EXCLUDED.first_trade_at),
			last_trade_at  = GREATEST(player_reputations.last_trade_at, EXCLUDED.last_trade_at)
	`, playerID, playerName, sellerInc, buyerInc, amount, tradedAt)
	return err
}

// GetReputation returns the player's reputation row, or the zero row for a
// player who never traded.
func (r *StatsRepository) GetReputation(ctx context.Context, playerID string) (*model.PlayerReputation, error) {
	rep := &model.PlayerReputation{}
	err := r.pool.QueryRow(ctx, `
		SELECT player_id, player_name, seller_trades, buyer_trades,
		       credits_traded, first_trade_at, last_trade_at
		FROM player_reputations WHERE player_id = $1
	`, playerID).Scan(
		&rep.PlayerID, &rep.PlayerName, &rep.SellerTrades, &rep.BuyerTrades,
		&rep.CreditsTraded, &rep.FirstTradeAt, &rep.LastTradeAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.PlayerReputation{PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Counts returns table row counts for the admin stats endpoint.
func (r *StatsRepository) Counts(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	queries := map[string]string{
		"active_listings": `SELECT COUNT(*) FROM listings WHERE status = 'active'`,
		"total_listings":  `SELECT COUNT(*) FROM listings`,
		"transactions":    `SELECT COUNT(*) FROM transactions`,
		"traders":         `SELECT COUNT(*) FROM player_reputations`,
	}
	for name, q := range queries {
		var n int64
		if err := r.pool.QueryRow(ctx, q).Scan(&n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, nil
}
