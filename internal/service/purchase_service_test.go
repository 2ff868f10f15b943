package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purchaseFixture struct {
	svc          *PurchaseService
	listings     *fakeListingStore
	transactions *fakeTransactionStore
	stats        *fakeStatsStore
	wallet       *fakeWallet
}

func newPurchaseFixture() *purchaseFixture {
	listings := newFakeListingStore()
	transactions := newFakeTransactionStore()
	stats := newFakeStatsStore()
	wallet := newFakeWallet()
	statsSvc := NewStatsService(transactions, stats)
	return &purchaseFixture{
		svc:          NewPurchaseService(listings, transactions, wallet, statsSvc),
		listings:     listings,
		transactions: transactions,
		stats:        stats,
		wallet:       wallet,
	}
}

func (f *purchaseFixture) seedListing(t *testing.T, sellerID string, price int64) *model.Listing {
	t.Helper()
	listing := &model.Listing{
		SellerID:    sellerID,
		SellerName:  "Seller " + sellerID,
		ItemType:    "scrap_metal",
		ItemName:    "Scrap Metal",
		Quantity:    5,
		AskingPrice: price,
	}
	stored, _, err := f.listings.Create(context.Background(), listing, 100, 50)
	require.NoError(t, err)
	return stored
}

func TestPurchaseHappyPath(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	listing := f.seedListing(t, "seller", 300)
	f.wallet.set("buyer", 1000)
	f.wallet.set("seller", 0)

	tx, err := f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer One")
	require.NoError(t, err)
	assert.Equal(t, listing.ID, tx.ListingID)
	assert.Equal(t, int64(300), tx.FinalPrice)
	assert.Equal(t, "seller", tx.SellerID)

	assert.Equal(t, int64(700), f.wallet.balance("buyer"))
	assert.Equal(t, int64(300), f.wallet.balance("seller"))

	sold, err := f.listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSold, sold.Status)
	require.NotNil(t, sold.BuyerID)
	assert.Equal(t, "buyer", *sold.BuyerID)

	// Aggregation runs off the purchase goroutine; wait for it to land.
	require.Eventually(t, func() bool {
		return f.stats.tradeCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	sellerRep, err := f.stats.GetReputation(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, 1, sellerRep.SellerTrades)
	assert.Equal(t, int64(300), sellerRep.CreditsTraded)

	buyerRep, err := f.stats.GetReputation(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, 1, buyerRep.BuyerTrades)
}

func TestPurchaseRaceExactlyOneWinner(t *testing.T) {
	f := newPurchaseFixture()
	listing := f.seedListing(t, "seller", 100)
	f.wallet.set("b1", 500)
	f.wallet.set("b2", 500)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	buyers := []string{"b1", "b2"}
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer string) {
			defer wg.Done()
			_, errs[i] = f.svc.Purchase(context.Background(), listing.ID, buyer, buyer)
		}(i, buyer)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrListingUnavailable)
		}
	}
	assert.Equal(t, 1, winners, "exactly one purchase must win the race")
	assert.Equal(t, 1, f.transactions.count())

	// The loser's balance is untouched; total credits are conserved.
	total := f.wallet.balance("b1") + f.wallet.balance("b2") + f.wallet.balance("seller")
	assert.Equal(t, int64(1000), total)
	assert.Equal(t, int64(100), f.wallet.balance("seller"))
}

func TestPurchaseRejectsOwnListing(t *testing.T) {
	f := newPurchaseFixture()
	listing := f.seedListing(t, "seller", 100)
	f.wallet.set("seller", 1000)

	_, err := f.svc.Purchase(context.Background(), listing.ID, "seller", "Seller")
	assert.ErrorIs(t, err, ErrCannotBuyOwnListing)
	assert.Zero(t, f.transactions.count())
}

func TestPurchaseInsufficientCredits(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	listing := f.seedListing(t, "seller", 500)
	f.wallet.set("buyer", 100)

	_, err := f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// The listing survives the failed attempt untouched.
	got, err := f.listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, int64(100), f.wallet.balance("buyer"))
}

func TestPurchaseUnknownListing(t *testing.T) {
	f := newPurchaseFixture()
	f.wallet.set("buyer", 1000)

	_, err := f.svc.Purchase(context.Background(), "no-such-id", "buyer", "Buyer")
	assert.ErrorIs(t, err, ErrListingUnavailable)
}

func TestPurchaseTerminalListing(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	listing := f.seedListing(t, "seller", 100)
	f.wallet.set("buyer", 1000)

	_, err := f.listings.Cancel(ctx, listing.ID, "seller")
	require.NoError(t, err)

	_, err = f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer")
	assert.ErrorIs(t, err, ErrListingUnavailable)
}

func TestPurchaseSellerCreditFailureCompensates(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	listing := f.seedListing(t, "seller", 300)
	f.wallet.set("buyer", 1000)
	f.wallet.failCredit["seller"] = true

	_, err := f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer")
	require.Error(t, err)

	// Buyer refunded, listing back on the market, no trade recorded.
	assert.Equal(t, int64(1000), f.wallet.balance("buyer"))
	got, getErr := f.listings.GetByID(ctx, listing.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Nil(t, got.BuyerID)
	assert.Zero(t, f.transactions.count())

	// A retry after the wallet recovers succeeds.
	delete(f.wallet.failCredit, "seller")
	_, err = f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer")
	assert.NoError(t, err)
}

func TestPurchaseTransactionInsertFailureCompensates(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	listing := f.seedListing(t, "seller", 300)
	f.wallet.set("buyer", 1000)
	f.wallet.set("seller", 50)
	f.transactions.failCreate = true

	_, err := f.svc.Purchase(ctx, listing.ID, "buyer", "Buyer")
	require.Error(t, err)

	// The transfer is unwound in both directions and the listing reopens.
	assert.Equal(t, int64(1000), f.wallet.balance("buyer"))
	assert.Equal(t, int64(50), f.wallet.balance("seller"))
	got, getErr := f.listings.GetByID(ctx, listing.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestPurchaseHistory(t *testing.T) {
	f := newPurchaseFixture()
	ctx := context.Background()
	f.wallet.set("buyer", 1000)

	first := f.seedListing(t, "seller", 100)
	second := f.seedListing(t, "other_seller", 200)

	_, err := f.svc.Purchase(ctx, first.ID, "buyer", "Buyer")
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, second.ID, "buyer", "Buyer")
	require.NoError(t, err)

	trades, err := f.svc.History(ctx, "buyer", 0)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	sellerTrades, err := f.svc.History(ctx, "seller", 0)
	require.NoError(t, err)
	assert.Len(t, sellerTrades, 1)

	none, err := f.svc.History(ctx, "stranger", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
