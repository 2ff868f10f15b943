package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/collaborator"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/config"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/database"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/handler"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/middleware"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/repository"
	"github.com/astrogirlnim/Children-of-Singularity-sub005/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Repositories
	listingRepo := repository.NewListingRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// External collaborators (player-data service owns inventory + credits)
	inventory := collaborator.NewInventoryClient(cfg.PlayerDataURL)
	wallet := collaborator.NewWalletClient(cfg.PlayerDataURL)

	// Services
	policy := service.ListingPolicy{
		MinAskingPrice: cfg.MinAskingPrice,
		MaxAskingPrice: cfg.MaxAskingPrice,
		MaxPerItem:     cfg.MaxPerItem,
		MaxTTLHours:    cfg.MaxTTLHours,
	}
	statsSvc := service.NewStatsService(transactionRepo, statsRepo)
	marketSvc := service.NewMarketService(listingRepo, statsRepo, inventory, policy)
	purchaseSvc := service.NewPurchaseService(listingRepo, transactionRepo, wallet, statsSvc)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    256 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// API v1
	v1 := app.Group("/api/v1")

	// Admin: shared-key guarded operational endpoints
	admin := v1.Group("/admin", middleware.AdminKey(cfg.AdminKey))
	adminH := handler.NewAdminHandler(marketSvc, statsSvc)
	admin.Get("/stats", adminH.Stats)
	admin.Post("/expire-sweep", adminH.ExpireSweep)

	// Market
	marketH := handler.NewMarketHandler(marketSvc, purchaseSvc)
	market := v1.Group("/market")
	market.Get("/listings", marketH.Search)
	market.Post("/listings", middleware.RateLimit(30, time.Minute), marketH.Create)
	market.Get("/listings/:id", marketH.GetByID)
	market.Post("/listings/:id/buy", middleware.RateLimit(30, time.Minute), marketH.Buy)
	market.Delete("/listings/:id", middleware.RateLimit(30, time.Minute), marketH.Cancel)
	market.Get("/my-listings", marketH.MyListings)
	market.Get("/availability", marketH.Availability)
	market.Get("/history/:player_id", marketH.History)

	// Market stats + reputation
	statsH := handler.NewStatsHandler(statsSvc)
	market.Get("/prices", statsH.Prices)
	v1.Get("/players/:id/reputation", statsH.Reputation)

	// Background expiry sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runExpireSweep(sweepCtx, marketSvc, cfg.SweepInterval)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Trading marketplace backend running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	stopSweep()
	_ = app.ShutdownWithTimeout(5 * time.Second)
	log.Println("Server stopped")
}

// runExpireSweep periodically moves active listings past their expiry to
// expired. The sweep is idempotent, so overlapping runs (including the
// admin-triggered one) are harmless.
func runExpireSweep(ctx context.Context, marketSvc *service.MarketService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			expired, err := marketSvc.ExpireListings(sweepCtx)
			cancel()
			if err != nil {
				log.Printf("[SWEEP] expire sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("[SWEEP] expired %d listings", expired)
			}
		}
	}
}
