package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revisaosegura/copartbr-sub000/internal/ws"
	handler "github.com/revisaosegura/copartbr-sub000/services/auction/handler"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionHandler *handler.AuctionHandler, wsHandler *ws.Handler) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// realtime bidding channel
	router.GET("/ws", wsHandler.Serve)

	bids := router.Group("/bids")
	{
		bids.POST("", auctionHandler.PlaceBidHandler)
	}

	lots := router.Group("/lots")
	{
		lots.GET("/:lot_id", auctionHandler.GetLotHandler)
		lots.GET("/:lot_id/bids", auctionHandler.GetBidsByLotHandler)
		lots.GET("/:lot_id/winning", auctionHandler.GetWinningBidHandler)
	}

	return router
}
