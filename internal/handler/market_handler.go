package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/model"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MarketHandler struct {
	marketSvc   *service.MarketService
	purchaseSvc *service.PurchaseService
}

func NewMarketHandler(marketSvc *service.MarketService, purchaseSvc *service.PurchaseService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc, purchaseSvc: purchaseSvc}
}

// GET /api/v1/market/listings
func (h *MarketHandler) Search(c *fiber.Ctx) error {
	req := &model.SearchListingsRequest{
		ItemType:   c.Query("item_type", ""),
		SearchText: c.Query("search", ""),
		SortBy:     c.Query("sort_by", "newest"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = v
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			req.Offset = v
		}
	}
	if minStr := c.Query("min_price"); minStr != "" {
		if v, err := strconv.ParseInt(minStr, 10, 64); err == nil {
			req.MinPrice = &v
		}
	}
	if maxStr := c.Query("max_price"); maxStr != "" {
		if v, err := strconv.ParseInt(maxStr, 10, 64); err == nil {
			req.MaxPrice = &v
		}
	}

	listings, total, err := h.marketSvc.SearchListings(c.Context(), req)
	if err != nil {
		log.Printf("[MARKET] search error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to search listings"})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
	})
}

// POST /api/v1/market/listings
func (h *MarketHandler) Create(c *fiber.Ctx) error {
	var req model.CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	listing, err := h.marketSvc.CreateListing(c.Context(), &req)
	if err != nil {
		return marketError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"listing": listing})
}

// GET /api/v1/market/listings/:id
func (h *MarketHandler) GetByID(c *fiber.Ctx) error {
	id, err := listingID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid listing id"})
	}

	listing, err := h.marketSvc.GetListing(c.Context(), id)
	if err != nil {
		return marketError(c, err)
	}

	return c.JSON(fiber.Map{"listing": listing})
}

// POST /api/v1/market/listings/:id/buy
func (h *MarketHandler) Buy(c *fiber.Ctx) error {
	id, err := listingID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid listing id"})
	}

	var req model.BuyListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.BuyerID == "" || req.BuyerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "buyer_id and buyer_name are required"})
	}

	transaction, err := h.purchaseSvc.Purchase(c.Context(), id, req.BuyerID, req.BuyerName)
	if err != nil {
		return marketError(c, err)
	}

	return c.JSON(fiber.Map{"transaction": transaction})
}

// DELETE /api/v1/market/listings/:id
func (h *MarketHandler) Cancel(c *fiber.Ctx) error {
	id, err := listingID(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid listing id"})
	}

	var req model.CancelListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SellerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "seller_id is required"})
	}

	if _, err := h.marketSvc.CancelListing(c.Context(), id, req.SellerID); err != nil {
		return marketError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// GET /api/v1/market/my-listings?seller_id=&status=
func (h *MarketHandler) MyListings(c *fiber.Ctx) error {
	sellerID := c.Query("seller_id")
	if sellerID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "seller_id is required"})
	}
	status := c.Query("status", "all")

	listings, err := h.marketSvc.GetMyListings(c.Context(), sellerID, status)
	if err != nil {
		if errors.Is(err, model.ErrInvalidStatus) {
			return c.Status(400).JSON(fiber.Map{"error": "invalid status filter"})
		}
		log.Printf("[MARKET] my-listings error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get listings"})
	}

	return c.JSON(fiber.Map{"listings": listings})
}

// GET /api/v1/market/availability?player_id=&item_type=
func (h *MarketHandler) Availability(c *fiber.Ctx) error {
	playerID := c.Query("player_id")
	itemType := c.Query("item_type")
	if playerID == "" || itemType == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player_id and item_type are required"})
	}

	available, err := h.marketSvc.AvailableToList(c.Context(), playerID, itemType)
	if err != nil {
		log.Printf("[MARKET] availability error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to compute availability"})
	}

	return c.JSON(fiber.Map{
		"player_id":         playerID,
		"item_type":         itemType,
		"available_to_list": available,
	})
}

// GET /api/v1/market/history/:player_id
func (h *MarketHandler) History(c *fiber.Ctx) error {
	playerID := c.Params("player_id")
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}

	trades, err := h.purchaseSvc.History(c.Context(), playerID, limit)
	if err != nil {
		log.Printf("[MARKET] history error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get trade history"})
	}

	return c.JSON(fiber.Map{"trades": trades, "total": len(trades)})
}

func listingID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", err
	}
	return id, nil
}

func marketError(c *fiber.Ctx, err error) error {
	var availErr *service.AvailabilityError
	if errors.As(err, &availErr) {
		return c.Status(409).JSON(fiber.Map{
			"error":             availErr.Error(),
			"available_to_list": availErr.Available,
		})
	}

	switch {
	case errors.Is(err, service.ErrListingNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "listing not found"})
	case errors.Is(err, service.ErrListingUnavailable):
		return c.Status(409).JSON(fiber.Map{"error": "listing_unavailable"})
	case errors.Is(err, service.ErrListingNotActive):
		return c.Status(409).JSON(fiber.Map{"error": "listing is no longer active"})
	case errors.Is(err, service.ErrInsufficientCredits):
		return c.Status(402).JSON(fiber.Map{"error": "insufficient_credits"})
	case errors.Is(err, service.ErrNotListingOwner):
		return c.Status(403).JSON(fiber.Map{"error": "not the listing owner"})
	case errors.Is(err, service.ErrCannotBuyOwnListing):
		return c.Status(400).JSON(fiber.Map{"error": "cannot buy your own listing"})
	case errors.Is(err, service.ErrInvalidQuantity):
		return c.Status(400).JSON(fiber.Map{"error": "quantity must be greater than 0"})
	case errors.Is(err, service.ErrInvalidPrice):
		return c.Status(400).JSON(fiber.Map{"error": "asking price outside allowed bounds"})
	case errors.Is(err, service.ErrInvalidTTL):
		return c.Status(400).JSON(fiber.Map{"error": "invalid ttl_hours"})
	case errors.Is(err, service.ErrMissingFields):
		return c.Status(400).JSON(fiber.Map{"error": "missing required fields"})
	default:
		log.Printf("[MARKET ERROR] %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
}
