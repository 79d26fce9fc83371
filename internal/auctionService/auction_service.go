package auction

import (
	"context"
	"fmt"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	"github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/internal/room"
)

// AuctionService is the HTTP-facing view of the auction: reads go to the
// store, bids go through the same per-lot rooms as the realtime channel,
// so an HTTP bid and a websocket bid for one lot can never race.
type AuctionService struct {
	store        repository.LotStore
	rooms        *room.Registry
	historyLimit int
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.LotStore, rooms *room.Registry, historyLimit int) *AuctionService {
	if historyLimit <= 0 {
		historyLimit = room.DefaultHistoryLimit
	}
	return &AuctionService{
		store:        store,
		rooms:        rooms,
		historyLimit: historyLimit,
	}
}

// PlaceBid routes a bid through the lot's auction room. Validation and
// acceptance happen inside the room; accepted bids are broadcast to the
// lot's realtime observers as usual.
func (s *AuctionService) PlaceBid(ctx context.Context, lotID string, bidder identity.Identity, amount int64) (models.Bid, error) {
	bid, err := s.rooms.PlaceBid(ctx, lotID, bidder, amount)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid on lot %s: %w", lotID, err)
	}
	return bid, nil
}

// GetLot returns a lot record
func (s *AuctionService) GetLot(ctx context.Context, lotID string) (models.Lot, error) {
	lot, err := s.store.GetLot(ctx, lotID)
	if err != nil {
		return models.Lot{}, fmt.Errorf("service: get lot %s: %w", lotID, err)
	}
	return lot, nil
}

// GetBidsForLot returns the lot's recent bids, oldest first
func (s *AuctionService) GetBidsForLot(ctx context.Context, lotID string) ([]models.Bid, error) {
	bids, err := s.store.GetRecentBids(ctx, lotID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("service: get bids for lot %s: %w", lotID, err)
	}
	return bids, nil
}

// GetWinningBid returns the bid currently holding the lot's maximum amount
func (s *AuctionService) GetWinningBid(ctx context.Context, lotID string) (models.Bid, error) {
	bids, err := s.store.GetRecentBids(ctx, lotID, s.historyLimit)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: get winning bid for lot %s: %w", lotID, err)
	}
	if len(bids) == 0 {
		return models.Bid{}, fmt.Errorf("service: get winning bid for lot %s: %w", lotID, auctionerrors.ErrNoBids)
	}

	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > winning.Amount {
			winning = b
		}
	}
	return winning, nil
}
