package service

import (
	"context"
	"errors"
	"log"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/collaborator"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/repository"
)

// PurchaseService turns an active listing into a completed sale: one atomic
// status transition on the listing, a credit transfer between the parties,
// and the immutable transaction record. Purchases are whole-listing only.
type PurchaseService struct {
	listings     ListingStore
	transactions TransactionStore
	wallet       Wallet
	stats        *StatsService
}

func NewPurchaseService(listings ListingStore, transactions TransactionStore, wallet Wallet, stats *StatsService) *PurchaseService {
	return &PurchaseService{
		listings:     listings,
		transactions: transactions,
		wallet:       wallet,
		stats:        stats,
	}
}

// Purchase buys the whole listing on behalf of the buyer.
//
// The compare-and-set on (id, status=active) is the single synchronization
// point: when two purchases race, exactly one caller proceeds past MarkSold
// and the loser is rejected with no credits touched. Everything after the
// flip either completes or is compensated by reverting the listing to
// active, so a sold listing always has a matching credit movement and
// transaction record.
func (s *PurchaseService) Purchase(ctx context.Context, listingID, buyerID, buyerName string) (*model.Transaction, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrListingUnavailable
		}
		return nil, err
	}
	if listing.Status != model.StatusActive {
		return nil, ErrListingUnavailable
	}
	if listing.SellerID == buyerID {
		return nil, ErrCannotBuyOwnListing
	}

	price := listing.TotalPrice()

	// Pre-check only; the balance can move between here and the debit, so
	// the debit itself still fails closed.
	balance, err := s.wallet.GetBalance(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if balance < price {
		return nil, ErrInsufficientCredits
	}

	sold, err := s.listings.MarkSold(ctx, listingID, buyerID, buyerName)
	if err != nil {
		if errors.Is(err, repository.ErrNotActive) {
			return nil, ErrListingUnavailable
		}
		return nil, err
	}

	if err := s.wallet.Debit(ctx, buyerID, price); err != nil {
		s.reopen(ctx, listingID)
		if errors.Is(err, collaborator.ErrInsufficientFunds) {
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	if err := s.wallet.Credit(ctx, sold.SellerID, price); err != nil {
		s.refundBuyer(ctx, buyerID, price)
		s.reopen(ctx, listingID)
		return nil, err
	}

	transaction := &model.Transaction{
		ListingID:  sold.ID,
		BuyerID:    buyerID,
		BuyerName:  buyerName,
		SellerID:   sold.SellerID,
		SellerName: sold.SellerName,
		ItemType:   sold.ItemType,
		ItemName:   sold.ItemName,
		Quantity:   sold.Quantity,
		FinalPrice: price,
	}
	recorded, err := s.transactions.Create(ctx, transaction)
	if err != nil {
		// Unwind the transfer, then the status flip.
		if clawErr := s.wallet.Debit(ctx, sold.SellerID, price); clawErr != nil {
			log.Printf("[MARKET] CRITICAL: could not claw back %d credits from seller %s for listing %s: %v",
				price, sold.SellerID, listingID, clawErr)
		}
		s.refundBuyer(ctx, buyerID, price)
		s.reopen(ctx, listingID)
		return nil, err
	}

	// Downstream aggregation never blocks or fails the sale.
	s.stats.RecordAsync(recorded)

	return recorded, nil
}

// History returns the player's completed trades, most recent first.
func (s *PurchaseService) History(ctx context.Context, playerID string, limit int) ([]model.Transaction, error) {
	return s.transactions.GetByPlayer(ctx, playerID, limit)
}

func (s *PurchaseService) reopen(ctx context.Context, listingID string) {
	if err := s.listings.ReopenSold(newDetachedContext(ctx), listingID); err != nil {
		log.Printf("[MARKET] CRITICAL: failed to reopen listing %s after aborted purchase: %v", listingID, err)
	}
}

func (s *PurchaseService) refundBuyer(ctx context.Context, buyerID string, amount int64) {
	if err := s.wallet.Credit(newDetachedContext(ctx), buyerID, amount); err != nil {
		log.Printf("[MARKET] CRITICAL: failed to refund %d credits to buyer %s: %v", amount, buyerID, err)
	}
}

// newDetachedContext shields compensation steps from caller cancellation so
// a client disconnect cannot abandon the listing in a half-completed state.
func newDetachedContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}
