// Package collaborator holds HTTP adapters for the external systems the
// marketplace depends on but does not own: the player-data service that
// keeps each player's inventory and credit balance.
package collaborator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrPlayerNotFound = errors.New("player not found")

type inventoryItem struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
	Quantity int    `json:"quantity"`
	Value    int64  `json:"value"`
}

type inventoryResponse struct {
	PlayerID   string          `json:"player_id"`
	Inventory  []inventoryItem `json:"inventory"`
	TotalItems int             `json:"total_items"`
}

// InventoryClient reads owned quantities from the player-data API. Reads are
// snapshots: the value is only trusted for the duration of the current
// request, and the listing store re-validates against its own reservations
// at commit time.
type InventoryClient struct {
	http *resty.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &InventoryClient{http: client}
}

// GetOwnedQuantity sums the player's inventory stacks of one item type.
func (c *InventoryClient) GetOwnedQuantity(ctx context.Context, playerID, itemType string) (int, error) {
	var out inventoryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/players/" + playerID + "/inventory")
	if err != nil {
		return 0, fmt.Errorf("inventory lookup: %w", err)
	}
	if resp.StatusCode() == 404 {
		return 0, ErrPlayerNotFound
	}
	if resp.IsError() {
		return 0, fmt.Errorf("inventory lookup: status %d", resp.StatusCode())
	}

	owned := 0
	for _, item := range out.Inventory {
		if item.ItemType == itemType {
			owned += item.Quantity
		}
	}
	return owned, nil
}
