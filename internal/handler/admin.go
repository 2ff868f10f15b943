package handler

import (
	"log"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	marketSvc *service.MarketService
	statsSvc  *service.StatsService
}

func NewAdminHandler(marketSvc *service.MarketService, statsSvc *service.StatsService) *AdminHandler {
	return &AdminHandler{marketSvc: marketSvc, statsSvc: statsSvc}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.statsSvc.MarketCounts(c.Context())
	if err != nil {
		log.Printf("[ADMIN] stats error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get stats"})
	}
	return c.JSON(counts)
}

// ExpireSweep triggers one expiry pass on demand, outside the background
// schedule.
func (h *AdminHandler) ExpireSweep(c *fiber.Ctx) error {
	expired, err := h.marketSvc.ExpireListings(c.Context())
	if err != nil {
		log.Printf("[ADMIN] expire sweep error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "expire sweep failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "expired": expired})
}
