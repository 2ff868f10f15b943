package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("listing not found")
	ErrNotActive         = errors.New("listing is not active")
	ErrInsufficientStock = errors.New("not enough unlisted stock")
	ErrItemCapExceeded   = errors.New("per-item listing cap exceeded")
)

const listingColumns = `id, seller_id, seller_name, item_type, item_name, quantity,
       asking_price, description, status, listed_at, expires_at,
       buyer_id, buyer_name, sold_at`

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	l := &model.Listing{}
	err := row.Scan(
		&l.ID, &l.SellerID, &l.SellerName, &l.ItemType, &l.ItemName, &l.Quantity,
		&l.AskingPrice, &l.Description, &l.Status, &l.ListedAt, &l.ExpiresAt,
		&l.BuyerID, &l.BuyerName, &l.SoldAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Create inserts a new active listing after re-validating availability
// against the seller's own active listings. The check and the insert run in
// one transaction holding a per-(seller, item type) advisory lock, so two
// concurrent creates from the same seller for the same item serialize and
// cannot jointly exceed what the seller owns.
//
// ownedQuantity is the caller's snapshot from the inventory ledger; maxPerItem
// is the per-player-per-item cap. Returns the listing and how many units were
// still free to list at commit time (before this insert).
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing, ownedQuantity, maxPerItem int) (*model.Listing, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`,
		l.SellerID, l.ItemType)
	if err != nil {
		return nil, 0, err
	}

	var reserved int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM listings
		WHERE seller_id = $1 AND item_type = $2 AND status = 'active'
	`, l.SellerID, l.ItemType).Scan(&reserved)
	if err != nil {
		return nil, 0, err
	}

	available := ownedQuantity - reserved
	if capRoom := maxPerItem - reserved; capRoom < available {
		available = capRoom
	}
	if available < 0 {
		available = 0
	}

	if l.Quantity > ownedQuantity-reserved {
		return nil, available, ErrInsufficientStock
	}
	if reserved+l.Quantity > maxPerItem {
		return nil, available, ErrItemCapExceeded
	}

	l.ID = uuid.NewString()
	l.Status = model.StatusActive
	err = tx.QueryRow(ctx, `
		INSERT INTO listings (
			id, seller_id, seller_name, item_type, item_name,
			quantity, asking_price, description, status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active', $9)
		RETURNING listed_at
	`,
		l.ID, l.SellerID, l.SellerName, l.ItemType, l.ItemName,
		l.Quantity, l.AskingPrice, l.Description, l.ExpiresAt,
	).Scan(&l.ListedAt)
	if err != nil {
		return nil, available, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, available, err
	}
	return l, available, nil
}

// ReservedQuantity sums the seller's active listing quantities for one item
// type. This is the computed reservation: no separate reservation row exists.
func (r *ListingRepository) ReservedQuantity(ctx context.Context, sellerID, itemType string) (int, error) {
	var reserved int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM listings
		WHERE seller_id = $1 AND item_type = $2 AND status = 'active'
	`, sellerID, itemType).Scan(&reserved)
	return reserved, err
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *ListingRepository) Search(ctx context.Context, req *model.SearchListingsRequest) ([]model.Listing, int, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	conditions = append(conditions, "status = 'active'")

	if req.ItemType != "" && req.ItemType != "all" {
		conditions = append(conditions, fmt.Sprintf("item_type = $%d", argIdx))
		args = append(args, req.ItemType)
		argIdx++
	}

	if req.SearchText != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(item_name) LIKE $%d", argIdx))
		args = append(args, "%"+strings.ToLower(req.SearchText)+"%")
		argIdx++
	}

	if req.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("asking_price >= $%d", argIdx))
		args = append(args, *req.MinPrice)
		argIdx++
	}

	if req.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("asking_price <= $%d", argIdx))
		args = append(args, *req.MaxPrice)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "listed_at DESC"
	switch req.SortBy {
	case "price_asc":
		orderBy = "asking_price ASC"
	case "price_desc":
		orderBy = "asking_price DESC"
	case "oldest":
		orderBy = "listed_at ASC"
	case "name":
		orderBy = "item_name ASC"
	case "quantity":
		orderBy = "quantity DESC"
	}

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM listings
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, listingColumns, where, orderBy, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, *l)
	}
	return listings, total, rows.Err()
}

func (r *ListingRepository) GetBySellerID(ctx context.Context, sellerID, status string) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE seller_id = $1`
	args := []interface{}{sellerID}
	if status != "" && status != "all" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY listed_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// MarkSold performs the single synchronization point of a purchase: a
// compare-and-set on (id, status=active). Exactly one concurrent caller gets
// the row back; everyone else gets ErrNotActive.
func (r *ListingRepository) MarkSold(ctx context.Context, id, buyerID, buyerName string) (*model.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, `
		UPDATE listings
		SET status = 'sold', buyer_id = $2, buyer_name = $3, sold_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING `+listingColumns,
		id, buyerID, buyerName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	return l, nil
}

// ReopenSold compensates a failed purchase by reverting sold back to active.
// Guarded on status='sold' so a double compensation is a no-op.
func (r *ListingRepository) ReopenSold(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings
		SET status = 'active', buyer_id = NULL, buyer_name = NULL, sold_at = NULL
		WHERE id = $1 AND status = 'sold'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

// Cancel transitions a seller's own active listing to cancelled. The same
// active-status guard protects against racing with a purchase or the expiry
// sweep: whichever commits first wins, the rest observe not-active.
func (r *ListingRepository) Cancel(ctx context.Context, id, sellerID string) (*model.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, `
		UPDATE listings
		SET status = 'cancelled'
		WHERE id = $1 AND seller_id = $2 AND status = 'active'
		RETURNING `+listingColumns,
		id, sellerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	return l, nil
}

// ExpireOld moves every active listing past its expiry to expired. Only rows
// still active are touched, so concurrent sweeps are safe.
func (r *ListingRepository) ExpireOld(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings SET status = 'expired'
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
