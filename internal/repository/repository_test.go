package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
)

func seedLot(t *testing.T, repo *MemoryRepo, lotID string, currentBid int64) {
	t.Helper()
	require.NoError(t, repo.SeedLot(context.Background(), model.Lot{
		LotID:      lotID,
		LotNumber:  "38291042",
		Title:      "2019 Toyota Corolla XEI",
		Status:     model.LotStatusLive,
		CurrentBid: currentBid,
	}))
}

func TestMemoryRepo_RecordBid(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seedLot(t, repo, "lot1", 10000)

	err := repo.RecordBid(ctx, model.Bid{BidID: "bid1", LotID: "missing", BidderID: "user1", Amount: 20000, CreatedAt: time.Now().UTC()})
	require.True(t, errors.Is(err, auctionerrors.ErrLotNotFound))

	require.NoError(t, repo.RecordBid(ctx, model.Bid{BidID: "bid1", LotID: "lot1", BidderID: "user1", Amount: 10001, CreatedAt: time.Now().UTC()}))
	require.NoError(t, repo.RecordBid(ctx, model.Bid{BidID: "bid2", LotID: "lot1", BidderID: "user2", Amount: 15000, CreatedAt: time.Now().UTC()}))

	highest, err := repo.GetHighestBid(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, int64(15000), highest)

	lot, err := repo.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, int64(15000), lot.CurrentBid)
}

func TestMemoryRepo_WinnerFlagUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seedLot(t, repo, "lot1", 0)

	base := time.Now().UTC()
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.RecordBid(ctx, model.Bid{
			BidID:     fmt.Sprintf("bid%d", i),
			LotID:     "lot1",
			BidderID:  "user1",
			Amount:    int64(i * 1000),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	bids, err := repo.GetRecentBids(ctx, "lot1", 0)
	require.NoError(t, err)
	require.Len(t, bids, 5)

	winners := 0
	for _, b := range bids {
		if b.IsWinning {
			winners++
			require.Equal(t, int64(5000), b.Amount, "winner must hold the maximum amount")
		}
	}
	require.Equal(t, 1, winners, "exactly one bid may hold the winner flag")
}

func TestMemoryRepo_GetRecentBids(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seedLot(t, repo, "lot1", 0)
	repo.AddUser(model.User{UserID: "user1", DisplayName: "Ana Souza"})

	base := time.Now().UTC()
	for i := 1; i <= 4; i++ {
		require.NoError(t, repo.RecordBid(ctx, model.Bid{
			BidID:     fmt.Sprintf("bid%d", i),
			LotID:     "lot1",
			BidderID:  "user1",
			Amount:    int64(i * 100),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	bids, err := repo.GetRecentBids(ctx, "lot1", 0)
	require.NoError(t, err)
	require.Len(t, bids, 4)
	for i := 1; i < len(bids); i++ {
		require.False(t, bids[i].CreatedAt.Before(bids[i-1].CreatedAt), "bids must be ascending by creation time")
	}
	require.Equal(t, "Ana Souza", bids[0].BidderName, "display names come from the user directory")

	// limit keeps the newest bids
	limited, err := repo.GetRecentBids(ctx, "lot1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, int64(300), limited[0].Amount)
	require.Equal(t, int64(400), limited[1].Amount)

	// replaying without an intervening bid yields identical output
	again, err := repo.GetRecentBids(ctx, "lot1", 0)
	require.NoError(t, err)
	require.Equal(t, bids, again)
}

func TestMemoryRepo_GetHighestBid_NoBids(t *testing.T) {
	repo := NewMemoryRepo()
	seedLot(t, repo, "lot1", 10000)

	_, err := repo.GetHighestBid(context.Background(), "lot1")
	require.True(t, errors.Is(err, auctionerrors.ErrNoBids))
}

func TestMemoryRepo_SeedLot_NeverUndercutsBidding(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	seedLot(t, repo, "lot1", 10000)

	// re-seeding with a lower price on a bid-free lot keeps the higher value
	require.NoError(t, repo.SeedLot(ctx, model.Lot{LotID: "lot1", Status: model.LotStatusLive, CurrentBid: 5000}))
	lot, err := repo.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, int64(10000), lot.CurrentBid)

	// once a bid exists, seeding never touches current_bid at all
	require.NoError(t, repo.RecordBid(ctx, model.Bid{BidID: "bid1", LotID: "lot1", BidderID: "user1", Amount: 12000, CreatedAt: time.Now().UTC()}))
	require.NoError(t, repo.SeedLot(ctx, model.Lot{LotID: "lot1", Status: model.LotStatusLive, CurrentBid: 99999}))
	lot, err = repo.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, int64(12000), lot.CurrentBid)
}

func TestMemoryRepo_GetUser(t *testing.T) {
	repo := NewMemoryRepo()
	repo.AddUser(model.User{UserID: "user1", DisplayName: "Ana Souza"})

	u, err := repo.GetUser(context.Background(), "user1")
	require.NoError(t, err)
	require.Equal(t, "Ana Souza", u.DisplayName)

	_, err = repo.GetUser(context.Background(), "ghost")
	require.True(t, errors.Is(err, auctionerrors.ErrUserNotFound))
}
