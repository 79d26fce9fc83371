package main

import (
	"context"
	"fmt"
	"os"

	auction "github.com/revisaosegura/copartbr-sub000/internal/auctionService"
	"github.com/revisaosegura/copartbr-sub000/internal/config"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/queue"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/internal/room"
	"github.com/revisaosegura/copartbr-sub000/internal/server"
	"github.com/revisaosegura/copartbr-sub000/internal/ws"
	handler "github.com/revisaosegura/copartbr-sub000/services/auction/handler"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

func main() {
	cfg := config.Load()

	var store repository.LotStore
	if cfg.MySQLConfigured() {
		mysqlRepo, err := repository.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			utils.Fatal("failed to connect to MySQL", map[string]any{"error": err.Error()})
		}
		store = mysqlRepo
	} else {
		memRepo := repository.NewMemoryRepo()
		prepopulateLots(memRepo)
		store = memRepo
		utils.Warn("no database configured, running on the in-memory store", nil)
	}

	if cfg.RedisAddr != "" {
		cache, err := repository.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			utils.Warn("redis unavailable, running without snapshot fallback", map[string]any{"error": err.Error()})
		} else {
			store = repository.NewSnapshotStore(store, cache)
		}
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		publisher = queue.NewAMQPPublisher(cfg.AMQPURL)
	}

	registry := room.NewRegistry(store, publisher, cfg.HistoryLimit)
	resolver := identity.NewResolver(cfg.JWTSecret, store)

	auctionSvc := auction.NewAuctionService(store, registry, cfg.HistoryLimit)
	auctionHandler := handler.NewAuctionHandler(auctionSvc, resolver)
	wsHandler := ws.NewHandler(registry, resolver)

	router := server.SetupRouter(auctionHandler, wsHandler)

	fmt.Printf("Starting auction server on %s...\n", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// prepopulateLots adds sample lots and users to the in-memory repo
func prepopulateLots(repo *repository.MemoryRepo) {
	lots := []model.Lot{
		{LotID: "lot1", LotNumber: "38291042", Title: "2019 Toyota Corolla XEI", Status: model.LotStatusLive, CurrentBid: 1000000},
		{LotID: "lot2", LotNumber: "38291077", Title: "2021 Jeep Renegade Sport", Status: model.LotStatusLive, CurrentBid: 2500000},
		{LotID: "lot3", LotNumber: "38291101", Title: "2017 Honda Civic Touring", Status: model.LotStatusUpcoming, CurrentBid: 1800000},
	}
	for _, lot := range lots {
		if err := repo.SeedLot(context.Background(), lot); err != nil {
			utils.Warn("failed to seed lot", map[string]any{"lot_id": lot.LotID, "error": err.Error()})
		}
	}

	users := []model.User{
		{UserID: "user1", DisplayName: "Ana Souza"},
		{UserID: "user2", DisplayName: "Bruno Lima"},
	}
	for _, u := range users {
		repo.AddUser(u)
	}
}
