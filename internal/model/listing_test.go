package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizePrice(t *testing.T) {
	const avg = int64(1000)

	tests := []struct {
		name     string
		asking   int64
		expected string
	}{
		{"well below average", 700, PriceBelowMarket},
		{"exactly 80 percent", 800, PriceBelowMarket},
		{"just above 80 percent", 801, PriceMarketRate},
		{"at average", 1000, PriceMarketRate},
		{"just below 120 percent", 1199, PriceMarketRate},
		{"exactly 120 percent", 1200, PriceAboveMarket},
		{"well above average", 1300, PriceAboveMarket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizePrice(tt.asking, avg))
		})
	}
}

func TestCategorizePriceNoHistory(t *testing.T) {
	assert.Empty(t, CategorizePrice(500, 0))
	assert.Empty(t, CategorizePrice(500, -1))
}

func TestCategorizePriceDeterministic(t *testing.T) {
	// Identical inputs must always land in the same bucket.
	for i := 0; i < 100; i++ {
		assert.Equal(t, PriceBelowMarket, CategorizePrice(70, 100))
		assert.Equal(t, PriceMarketRate, CategorizePrice(100, 100))
		assert.Equal(t, PriceAboveMarket, CategorizePrice(130, 100))
	}
}

func TestListingIsTerminal(t *testing.T) {
	active := &Listing{Status: StatusActive}
	assert.False(t, active.IsTerminal())

	for _, status := range []string{StatusSold, StatusCancelled, StatusExpired} {
		l := &Listing{Status: status}
		assert.True(t, l.IsTerminal(), "status %s should be terminal", status)
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusActive, StatusSold, StatusCancelled, StatusExpired} {
		assert.True(t, ValidStatus(status))
	}
	assert.False(t, ValidStatus("pending"))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("Active"))
}

func TestReputationScore(t *testing.T) {
	rep := &PlayerReputation{SellerTrades: 3, BuyerTrades: 4}
	assert.Equal(t, 10, rep.Score())

	fresh := &PlayerReputation{}
	assert.Equal(t, 0, fresh.Score())
}
