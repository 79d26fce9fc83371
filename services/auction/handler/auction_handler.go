package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/services/auction/helpers"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

type AuctionServiceInterface interface {
	PlaceBid(ctx context.Context, lotID string, bidder identity.Identity, amount int64) (model.Bid, error)
	GetLot(ctx context.Context, lotID string) (model.Lot, error)
	GetBidsForLot(ctx context.Context, lotID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, lotID string) (model.Bid, error)
}

// IdentityResolver resolves the bearer token on REST bid requests.
type IdentityResolver interface {
	Resolve(ctx context.Context, rawToken string) identity.Identity
}

type AuctionHandler struct {
	service  AuctionServiceInterface
	resolver IdentityResolver
}

func NewAuctionHandler(service AuctionServiceInterface, resolver IdentityResolver) *AuctionHandler {
	return &AuctionHandler{service: service, resolver: resolver}
}

// PlaceBidHandler handles POST /bids. It is the HTTP twin of the
// realtime place_bid message and goes through the same per-lot room.
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bidder := h.resolver.Resolve(c.Request.Context(), bearerToken(c))

	bid, err := h.service.PlaceBid(c.Request.Context(), req.LotID, bidder, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"handler":   "PlaceBidHandler",
			"lot_id":    req.LotID,
			"bidder_id": bidder.UserID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, bidResponse(bid), "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"bid_id":    bid.BidID,
		"lot_id":    bid.LotID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
}

// GetLotHandler handles GET /lots/:lot_id
func (h *AuctionHandler) GetLotHandler(c *gin.Context) {
	lotID := c.Param("lot_id")
	lot, err := h.service.GetLot(c.Request.Context(), lotID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetLotHandler: error retrieving lot", map[string]any{"lot_id": lotID, "error": err.Error()})
		return
	}

	resp := helpers.LotResponse{
		LotID:       lot.LotID,
		LotNumber:   lot.LotNumber,
		Title:       lot.Title,
		Description: lot.Description,
		Status:      lot.Status,
		CurrentBid:  lot.CurrentBid,
	}
	if lot.ClosesAt != nil {
		resp.ClosesAt = lot.ClosesAt.UTC().Format(time.RFC3339)
	}

	utils.JSONResponse(c, http.StatusOK, resp, "lot retrieved successfully")
}

// GetBidsByLotHandler handles GET /lots/:lot_id/bids
func (h *AuctionHandler) GetBidsByLotHandler(c *gin.Context) {
	lotID := c.Param("lot_id")
	bids, err := h.service.GetBidsForLot(c.Request.Context(), lotID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByLotHandler: error retrieving bids", map[string]any{"lot_id": lotID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, bidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByLotHandler", "bids retrieved successfully", map[string]any{
		"lot_id": lotID,
		"count":  len(resp),
	})
}

// GetWinningBidHandler handles GET /lots/:lot_id/winning
func (h *AuctionHandler) GetWinningBidHandler(c *gin.Context) {
	lotID := c.Param("lot_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), lotID)
	if err != nil {
		// For auction, winning bid not found -> 404
		if errors.Is(err, auctionerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"lot_id": lotID})
			return
		}
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWinningBidHandler: winning bid error", map[string]any{"lot_id": lotID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id": bid.BidID,
		"lot_id": bid.LotID,
		"amount": bid.Amount,
	})
}

func bidResponse(b model.Bid) helpers.BidResponse {
	return helpers.BidResponse{
		BidID:      b.BidID,
		LotID:      b.LotID,
		BidderID:   b.BidderID,
		BidderName: b.BidderName,
		Amount:     b.Amount,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
		IsWinning:  b.IsWinning,
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie("session"); err == nil {
		return cookie
	}
	return ""
}
