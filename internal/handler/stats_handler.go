package handler

import (
	"log"
	"strconv"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	statsSvc *service.StatsService
}

func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// GET /api/v1/players/:id/reputation
func (h *StatsHandler) Reputation(c *fiber.Ctx) error {
	rep, err := h.statsSvc.Reputation(c.Context(), c.Params("id"))
	if err != nil {
		log.Printf("[STATS] reputation error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get reputation"})
	}

	return c.JSON(fiber.Map{
		"player_id":        rep.PlayerID,
		"player_name":      rep.PlayerName,
		"seller_trades":    rep.SellerTrades,
		"buyer_trades":     rep.BuyerTrades,
		"credits_traded":   rep.CreditsTraded,
		"reputation_score": rep.Score(),
		"first_trade_at":   rep.FirstTradeAt,
		"last_trade_at":    rep.LastTradeAt,
	})
}

// GET /api/v1/market/prices returns the latest daily record per item, or the history
// of one item when item_type and item_name are given.
func (h *StatsHandler) Prices(c *fiber.Ctx) error {
	itemType := c.Query("item_type")
	itemName := c.Query("item_name")

	if itemType != "" && itemName != "" {
		days := 0
		if daysStr := c.Query("days"); daysStr != "" {
			if v, err := strconv.Atoi(daysStr); err == nil {
				days = v
			}
		}
		records, err := h.statsSvc.PriceHistory(c.Context(), itemType, itemName, days)
		if err != nil {
			log.Printf("[STATS] price history error: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to get price history"})
		}
		return c.JSON(fiber.Map{"prices": records})
	}

	records, err := h.statsSvc.LatestPrices(c.Context())
	if err != nil {
		log.Printf("[STATS] prices error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get prices"})
	}
	return c.JSON(fiber.Map{"prices": records})
}
