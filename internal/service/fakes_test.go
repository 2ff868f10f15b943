package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/collaborator"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/repository"

	"github.com/google/uuid"
)

// fakeListingStore mirrors the repository's concurrency contract in memory:
// every method holds one lock, so the conditional transitions behave like
// the SQL compare-and-set and the advisory-lock create.
type fakeListingStore struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{listings: make(map[string]*model.Listing)}
}

func (s *fakeListingStore) Create(_ context.Context, l *model.Listing, ownedQuantity, maxPerItem int) (*model.Listing, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserved := s.reservedLocked(l.SellerID, l.ItemType)
	available := ownedQuantity - reserved
	if capRoom := maxPerItem - reserved; capRoom < available {
		available = capRoom
	}
	if available < 0 {
		available = 0
	}

	if l.Quantity > ownedQuantity-reserved {
		return nil, available, repository.ErrInsufficientStock
	}
	if reserved+l.Quantity > maxPerItem {
		return nil, available, repository.ErrItemCapExceeded
	}

	stored := *l
	stored.ID = uuid.NewString()
	stored.Status = model.StatusActive
	stored.ListedAt = time.Now()
	s.listings[stored.ID] = &stored

	out := stored
	return &out, available, nil
}

func (s *fakeListingStore) reservedLocked(sellerID, itemType string) int {
	reserved := 0
	for _, l := range s.listings {
		if l.SellerID == sellerID && l.ItemType == itemType && l.Status == model.StatusActive {
			reserved += l.Quantity
		}
	}
	return reserved
}

func (s *fakeListingStore) ReservedQuantity(_ context.Context, sellerID, itemType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservedLocked(sellerID, itemType), nil
}

func (s *fakeListingStore) GetByID(_ context.Context, id string) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (s *fakeListingStore) Search(_ context.Context, req *model.SearchListingsRequest) ([]model.Listing, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Listing
	for _, l := range s.listings {
		if l.Status != model.StatusActive {
			continue
		}
		if req.ItemType != "" && req.ItemType != "all" && l.ItemType != req.ItemType {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (s *fakeListingStore) GetBySellerID(_ context.Context, sellerID, status string) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Listing
	for _, l := range s.listings {
		if l.SellerID != sellerID {
			continue
		}
		if status != "" && status != "all" && l.Status != status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *fakeListingStore) MarkSold(_ context.Context, id, buyerID, buyerName string) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.Status != model.StatusActive {
		return nil, repository.ErrNotActive
	}
	now := time.Now()
	l.Status = model.StatusSold
	l.BuyerID = &buyerID
	l.BuyerName = &buyerName
	l.SoldAt = &now
	out := *l
	return &out, nil
}

func (s *fakeListingStore) ReopenSold(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.Status != model.StatusSold {
		return repository.ErrNotActive
	}
	l.Status = model.StatusActive
	l.BuyerID = nil
	l.BuyerName = nil
	l.SoldAt = nil
	return nil
}

func (s *fakeListingStore) Cancel(_ context.Context, id, sellerID string) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok || l.SellerID != sellerID || l.Status != model.StatusActive {
		return nil, repository.ErrNotActive
	}
	l.Status = model.StatusCancelled
	out := *l
	return &out, nil
}

func (s *fakeListingStore) ExpireOld(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired int64
	for _, l := range s.listings {
		if l.Status == model.StatusActive && l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
			l.Status = model.StatusExpired
			expired++
		}
	}
	return expired, nil
}

type fakeTransactionStore struct {
	mu           sync.Mutex
	transactions map[string]*model.Transaction
	byListing    map[string]bool
	recorded     map[string]bool
	failCreate   bool
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{
		transactions: make(map[string]*model.Transaction),
		byListing:    make(map[string]bool),
		recorded:     make(map[string]bool),
	}
}

func (s *fakeTransactionStore) Create(_ context.Context, t *model.Transaction) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return nil, errors.New("transaction insert failed")
	}
	if s.byListing[t.ListingID] {
		return nil, fmt.Errorf("duplicate transaction for listing %s", t.ListingID)
	}
	stored := *t
	stored.ID = uuid.NewString()
	stored.CompletedAt = time.Now()
	s.transactions[stored.ID] = &stored
	s.byListing[t.ListingID] = true
	out := stored
	return &out, nil
}

func (s *fakeTransactionStore) GetByPlayer(_ context.Context, playerID string, _ int) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, t := range s.transactions {
		if t.BuyerID == playerID || t.SellerID == playerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeTransactionStore) MarkStatsRecorded(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorded[transactionID] {
		return false, nil
	}
	s.recorded[transactionID] = true
	return true, nil
}

func (s *fakeTransactionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

type reputationDelta struct {
	playerID string
	amount   int64
	asSeller bool
}

type fakeStatsStore struct {
	mu         sync.Mutex
	records    []model.MarketPriceRecord
	recomputes []itemKey
	trades     []reputationDelta
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{}
}

func (s *fakeStatsStore) RecomputePriceRecord(_ context.Context, itemType, itemName string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputes = append(s.recomputes, itemKey{itemType, itemName})
	return nil
}

func (s *fakeStatsStore) LatestPriceRecords(_ context.Context) ([]model.MarketPriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MarketPriceRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStatsStore) PriceHistory(_ context.Context, itemType, itemName string, _ int) ([]model.MarketPriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MarketPriceRecord
	for _, r := range s.records {
		if r.ItemType == itemType && r.ItemName == itemName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStatsStore) ApplyTrade(_ context.Context, playerID, _ string, amount int64, _ time.Time, asSeller bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, reputationDelta{playerID: playerID, amount: amount, asSeller: asSeller})
	return nil
}

func (s *fakeStatsStore) GetReputation(_ context.Context, playerID string) (*model.PlayerReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := &model.PlayerReputation{PlayerID: playerID}
	for _, d := range s.trades {
		if d.playerID != playerID {
			continue
		}
		if d.asSeller {
			rep.SellerTrades++
		} else {
			rep.BuyerTrades++
		}
		rep.CreditsTraded += d.amount
	}
	return rep, nil
}

func (s *fakeStatsStore) Counts(_ context.Context) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (s *fakeStatsStore) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

type fakeInventory struct {
	mu    sync.Mutex
	owned map[string]int // key: playerID + "/" + itemType
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{owned: make(map[string]int)}
}

func (f *fakeInventory) set(playerID, itemType string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owned[playerID+"/"+itemType] = quantity
}

func (f *fakeInventory) GetOwnedQuantity(_ context.Context, playerID, itemType string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned[playerID+"/"+itemType], nil
}

type fakeWallet struct {
	mu         sync.Mutex
	balances   map[string]int64
	failCredit map[string]bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		balances:   make(map[string]int64),
		failCredit: make(map[string]bool),
	}
}

func (w *fakeWallet) set(playerID string, balance int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] = balance
}

func (w *fakeWallet) balance(playerID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[playerID]
}

func (w *fakeWallet) GetBalance(_ context.Context, playerID string) (int64, error) {
	return w.balance(playerID), nil
}

func (w *fakeWallet) Debit(_ context.Context, playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[playerID] < amount {
		return collaborator.ErrInsufficientFunds
	}
	w.balances[playerID] -= amount
	return nil
}

func (w *fakeWallet) Credit(_ context.Context, playerID string, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failCredit[playerID] {
		return errors.New("wallet unavailable")
	}
	w.balances[playerID] += amount
	return nil
}
