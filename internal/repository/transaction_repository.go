package repository

import (
	"context"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts the immutable trade record. The UNIQUE constraint on
// listing_id enforces at most one transaction per listing at the schema
// level.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	t.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (
			id, listing_id, buyer_id, buyer_name, seller_id, seller_name,
			item_type, item_name, quantity, final_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING completed_at
	`,
		t.ID, t.ListingID, t.BuyerID, t.BuyerName, t.SellerID, t.SellerName,
		t.ItemType, t.ItemName, t.Quantity, t.FinalPrice,
	).Scan(&t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByPlayer returns trades where the player was buyer or seller, most
// recent first.
func (r *TransactionRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, buyer_id, buyer_name, seller_id, seller_name,
		       item_type, item_name, quantity, final_price, completed_at
		FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(
			&t.ID, &t.ListingID, &t.BuyerID, &t.BuyerName, &t.SellerID, &t.SellerName,
			&t.ItemType, &t.ItemName, &t.Quantity, &t.FinalPrice, &t.CompletedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// MarkStatsRecorded flips the replay-protection flag for downstream
// aggregation. Compare-and-set on the flag: returns false when another
// replay already claimed this transaction.
func (r *TransactionRepository) MarkStatsRecorded(ctx context.Context, transactionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET stats_recorded = TRUE
		WHERE id = $1 AND stats_recorded = FALSE
	`, transactionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
