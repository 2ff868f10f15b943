// Package client is the game-side library for the trading marketplace. It
// wraps the HTTP API with a local listing cache and a request governor that
// suppresses duplicate submissions from rapid re-clicking. Everything here
// is a UX optimization: the server remains the sole authority and any local
// estimate can be stale.
package client

import (
	"errors"
	"sync"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
)

// ErrCooldown rejects a mutating request sent too soon after the previous
// one of the same kind. Not a server error: nothing was sent.
var ErrCooldown = errors.New("request suppressed: cooldown active")

// Clock abstracts wall time so cooldown behavior tests need no real delays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Governor enforces a minimum interval between repeated mutating requests
// of the same kind. It is an explicit cooldown-timestamp comparison, not a
// security boundary.
type Governor struct {
	mu          sync.Mutex
	clock       Clock
	minInterval time.Duration
	lastAllowed map[string]time.Time
}

func NewGovernor(minInterval time.Duration, clock Clock) *Governor {
	if clock == nil {
		clock = systemClock{}
	}
	return &Governor{
		clock:       clock,
		minInterval: minInterval,
		lastAllowed: make(map[string]time.Time),
	}
}

// Allow reports whether a request of the given kind may be sent now, and if
// so starts that kind's cooldown.
func (g *Governor) Allow(kind string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if last, ok := g.lastAllowed[kind]; ok && now.Sub(last) < g.minInterval {
		return false
	}
	g.lastAllowed[kind] = now
	return true
}

// ListingCache is the client's read-through view of the market: the current
// page of active listings plus the player's own listings. It is an explicit
// object handed to the UI by reference and refreshed only through explicit
// calls after mutating responses, never through ambient global state.
type ListingCache struct {
	mu          sync.RWMutex
	active      []model.ListingView
	mine        []model.Listing
	refreshedAt time.Time
}

func NewListingCache() *ListingCache {
	return &ListingCache{}
}

func (c *ListingCache) SetActive(listings []model.ListingView, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = listings
	c.refreshedAt = at
}

func (c *ListingCache) SetMine(listings []model.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mine = listings
}

func (c *ListingCache) Active() []model.ListingView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ListingView, len(c.active))
	copy(out, c.active)
	return out
}

func (c *ListingCache) Mine() []model.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Listing, len(c.mine))
	copy(out, c.mine)
	return out
}

// ReservedQuantity sums the player's own cached active listings for an item
// type. This is the local view of the computed reservation.
func (c *ListingCache) ReservedQuantity(itemType string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reserved := 0
	for _, l := range c.mine {
		if l.Status == model.StatusActive && l.ItemType == itemType {
			reserved += l.Quantity
		}
	}
	return reserved
}

func (c *ListingCache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
