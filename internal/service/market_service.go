package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/repository"
)

var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingNotActive    = errors.New("listing is not active")
	ErrListingUnavailable  = errors.New("listing unavailable")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNotListingOwner     = errors.New("not the listing owner")
	ErrCannotBuyOwnListing = errors.New("cannot buy your own listing")
	ErrInvalidQuantity     = errors.New("quantity must be greater than 0")
	ErrInvalidPrice        = errors.New("asking price outside allowed bounds")
	ErrInvalidTTL          = errors.New("invalid listing duration")
	ErrMissingFields       = errors.New("missing required fields")
)

// AvailabilityError rejects a create that would over-commit the seller's
// stock or breach the per-item cap. Available is how many units the seller
// could still list at the time of the check.
type AvailabilityError struct {
	Requested int
	Available int
	CapHit    bool
}

func (e *AvailabilityError) Error() string {
	if e.CapHit {
		return fmt.Sprintf("per-item listing cap reached: requested %d, can still list %d", e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient availability: requested %d, available %d", e.Requested, e.Available)
}

// ListingPolicy holds the configured bounds a new listing must satisfy.
type ListingPolicy struct {
	MinAskingPrice int64
	MaxAskingPrice int64
	MaxPerItem     int
	MaxTTLHours    int
}

// MarketService owns the listing lifecycle: creation (with inventory
// reservation validation), browsing with price context, cancellation and the
// expiry sweep.
type MarketService struct {
	listings  ListingStore
	stats     StatsStore
	inventory InventoryLedger
	policy    ListingPolicy
	now       func() time.Time
}

func NewMarketService(listings ListingStore, stats StatsStore, inventory InventoryLedger, policy ListingPolicy) *MarketService {
	return &MarketService{
		listings:  listings,
		stats:     stats,
		inventory: inventory,
		policy:    policy,
		now:       time.Now,
	}
}

func (s *MarketService) CreateListing(ctx context.Context, req *model.CreateListingRequest) (*model.Listing, error) {
	if req.SellerID == "" || req.SellerName == "" || req.ItemType == "" || req.ItemName == "" {
		return nil, ErrMissingFields
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.AskingPrice < s.policy.MinAskingPrice || req.AskingPrice > s.policy.MaxAskingPrice {
		return nil, ErrInvalidPrice
	}
	if req.TTLHours < 0 || req.TTLHours > s.policy.MaxTTLHours {
		return nil, ErrInvalidTTL
	}

	// Snapshot of owned stock, fetched before any lock is taken. The store
	// re-checks the seller's own reservations under a per-(seller, item)
	// critical section, so two racing creates cannot jointly exceed this.
	owned, err := s.inventory.GetOwnedQuantity(ctx, req.SellerID, req.ItemType)
	if err != nil {
		return nil, fmt.Errorf("owned quantity for %s/%s: %w", req.SellerID, req.ItemType, err)
	}

	listing := &model.Listing{
		SellerID:    req.SellerID,
		SellerName:  req.SellerName,
		ItemType:    req.ItemType,
		ItemName:    req.ItemName,
		Quantity:    req.Quantity,
		AskingPrice: req.AskingPrice,
		Description: req.Description,
	}
	if req.TTLHours > 0 {
		expires := s.now().Add(time.Duration(req.TTLHours) * time.Hour)
		listing.ExpiresAt = &expires
	}

	created, available, err := s.listings.Create(ctx, listing, owned, s.policy.MaxPerItem)
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return nil, &AvailabilityError{Requested: req.Quantity, Available: available}
	case errors.Is(err, repository.ErrItemCapExceeded):
		return nil, &AvailabilityError{Requested: req.Quantity, Available: available, CapHit: true}
	case err != nil:
		return nil, err
	}
	return created, nil
}

// AvailableToList answers how many units of an item the player can still
// list: owned stock minus what their own active listings already reserve,
// further limited by the per-item cap.
func (s *MarketService) AvailableToList(ctx context.Context, playerID, itemType string) (int, error) {
	owned, err := s.inventory.GetOwnedQuantity(ctx, playerID, itemType)
	if err != nil {
		return 0, err
	}
	reserved, err := s.listings.ReservedQuantity(ctx, playerID, itemType)
	if err != nil {
		return 0, err
	}
	available := owned - reserved
	if capRoom := s.policy.MaxPerItem - reserved; capRoom < available {
		available = capRoom
	}
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (s *MarketService) CancelListing(ctx context.Context, listingID, requesterID string) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if listing.SellerID != requesterID {
		return nil, ErrNotListingOwner
	}
	if listing.Status != model.StatusActive {
		return nil, ErrListingNotActive
	}

	// The reservation is computed from active listings, so flipping the
	// status releases it; the inventory ledger never held the stock back.
	cancelled, err := s.listings.Cancel(ctx, listingID, requesterID)
	if errors.Is(err, repository.ErrNotActive) {
		return nil, ErrListingNotActive
	}
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

type itemKey struct {
	itemType string
	itemName string
}

// SearchListings returns a page of active listings annotated with each
// item's most recent daily average and the derived price category. Price
// context is informational only: if it cannot be loaded the page degrades
// to plain listings rather than failing.
func (s *MarketService) SearchListings(ctx context.Context, req *model.SearchListingsRequest) ([]model.ListingView, int, error) {
	listings, total, err := s.listings.Search(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	averages := map[itemKey]int64{}
	records, err := s.stats.LatestPriceRecords(ctx)
	if err != nil {
		log.Printf("[MARKET] price context unavailable: %v", err)
	} else {
		for _, rec := range records {
			averages[itemKey{rec.ItemType, rec.ItemName}] = rec.AveragePrice
		}
	}

	views := make([]model.ListingView, 0, len(listings))
	for _, l := range listings {
		view := model.ListingView{Listing: l}
		if avg, ok := averages[itemKey{l.ItemType, l.ItemName}]; ok {
			a := avg
			view.MarketAverage = &a
			view.PriceCategory = model.CategorizePrice(l.AskingPrice, avg)
		}
		views = append(views, view)
	}
	return views, total, nil
}

func (s *MarketService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *MarketService) GetMyListings(ctx context.Context, playerID, status string) ([]model.Listing, error) {
	if status != "" && status != "all" && !model.ValidStatus(status) {
		return nil, model.ErrInvalidStatus
	}
	return s.listings.GetBySellerID(ctx, playerID, status)
}

// ExpireListings runs one expiry sweep pass. Safe to run concurrently with
// itself and with cancels/purchases: only rows still active are mutated.
func (s *MarketService) ExpireListings(ctx context.Context) (int64, error) {
	return s.listings.ExpireOld(ctx)
}
