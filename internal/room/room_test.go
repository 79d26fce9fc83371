package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
)

// captureObserver records every event it is sent.
type captureObserver struct {
	id string

	mu     sync.Mutex
	events []Event
}

func newCaptureObserver(id string) *captureObserver {
	return &captureObserver{id: id}
}

func (o *captureObserver) ID() string { return o.id }

func (o *captureObserver) Send(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *captureObserver) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func (o *captureObserver) accepted() []BidAcceptedEvent {
	var out []BidAcceptedEvent
	for _, ev := range o.Events() {
		if a, ok := ev.(BidAcceptedEvent); ok {
			out = append(out, a)
		}
	}
	return out
}

func liveLotRegistry(t *testing.T, lotID string, seed int64) (*Registry, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SeedLot(context.Background(), model.Lot{
		LotID:      lotID,
		LotNumber:  "38291042",
		Title:      "2019 Toyota Corolla XEI",
		Status:     model.LotStatusLive,
		CurrentBid: seed,
	}))
	return NewRegistry(repo, nil, 0), repo
}

func TestRoom_JoinReplaysHistoryToJoinerOnly(t *testing.T) {
	ctx := context.Background()
	reg, _ := liveLotRegistry(t, "lot1", 10000)

	first := newCaptureObserver("conn1")
	require.NoError(t, reg.Join(ctx, "lot1", first))

	events := first.Events()
	require.Len(t, events, 1)
	history, ok := events[0].(HistoryEvent)
	require.True(t, ok)
	require.Equal(t, "lot1", history.LotID)
	require.Equal(t, int64(10000), history.HighestBid)
	require.Empty(t, history.Bids)

	_, err := reg.PlaceBid(ctx, "lot1", identity.Identity{UserID: "user1", DisplayName: "Ana Souza"}, 12000)
	require.NoError(t, err)

	// a late joiner replays the accepted bid; the first observer gets no
	// second history event
	late := newCaptureObserver("conn2")
	require.NoError(t, reg.Join(ctx, "lot1", late))

	lateEvents := late.Events()
	require.Len(t, lateEvents, 1)
	lateHistory := lateEvents[0].(HistoryEvent)
	require.Equal(t, int64(12000), lateHistory.HighestBid)
	require.Len(t, lateHistory.Bids, 1)
	require.Equal(t, int64(12000), lateHistory.Bids[0].Amount)

	var histories int
	for _, ev := range first.Events() {
		if _, ok := ev.(HistoryEvent); ok {
			histories++
		}
	}
	require.Equal(t, 1, histories)
}

func TestRoom_PlaceBidValidation(t *testing.T) {
	bidder := identity.Identity{UserID: "user1", DisplayName: "Ana Souza"}

	tests := []struct {
		name          string
		bidder        identity.Identity
		amount        int64
		lotStatus     string
		expectedError error
	}{
		{
			name:          "anonymous_bidder",
			bidder:        identity.Identity{},
			amount:        20000,
			lotStatus:     model.LotStatusLive,
			expectedError: auctionerrors.ErrUnauthenticated,
		},
		{
			name:          "zero_amount",
			bidder:        bidder,
			amount:        0,
			lotStatus:     model.LotStatusLive,
			expectedError: auctionerrors.ErrInvalidAmount,
		},
		{
			name:          "negative_amount",
			bidder:        bidder,
			amount:        -500,
			lotStatus:     model.LotStatusLive,
			expectedError: auctionerrors.ErrInvalidAmount,
		},
		{
			name:          "equal_to_highest_loses",
			bidder:        bidder,
			amount:        10000,
			lotStatus:     model.LotStatusLive,
			expectedError: auctionerrors.ErrStaleBid,
		},
		{
			name:          "below_highest",
			bidder:        bidder,
			amount:        9999,
			lotStatus:     model.LotStatusLive,
			expectedError: auctionerrors.ErrStaleBid,
		},
		{
			name:          "sold_lot",
			bidder:        bidder,
			amount:        20000,
			lotStatus:     model.LotStatusSold,
			expectedError: auctionerrors.ErrLotClosed,
		},
		{
			name:      "strictly_greater_accepted",
			bidder:    bidder,
			amount:    10001,
			lotStatus: model.LotStatusLive,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			repo := repository.NewMemoryRepo()
			require.NoError(t, repo.SeedLot(context.Background(), model.Lot{
				LotID:      "lot1",
				Status:     tc.lotStatus,
				CurrentBid: 10000,
			}))
			reg := NewRegistry(repo, nil, 0)

			bid, err := reg.PlaceBid(context.Background(), "lot1", tc.bidder, tc.amount)
			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected %v, got %v", tc.expectedError, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.amount, bid.Amount)
			require.True(t, bid.IsWinning)
		})
	}
}

func TestRoom_ClosingTimeRejectsBids(t *testing.T) {
	repo := repository.NewMemoryRepo()
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.SeedLot(context.Background(), model.Lot{
		LotID:      "lot1",
		Status:     model.LotStatusLive,
		CurrentBid: 10000,
		ClosesAt:   &past,
	}))
	reg := NewRegistry(repo, nil, 0)

	_, err := reg.PlaceBid(context.Background(), "lot1", identity.Identity{UserID: "user1"}, 20000)
	require.True(t, errors.Is(err, auctionerrors.ErrLotClosed))
}

func TestRoom_BiddingScenario(t *testing.T) {
	// Lot opens at 10000 cents. A stale bid and an anonymous bid are
	// rejected; two valid bids land; a late joiner sees exactly those two.
	ctx := context.Background()
	reg, _ := liveLotRegistry(t, "lot1", 10000)

	watcher := newCaptureObserver("watcher")
	require.NoError(t, reg.Join(ctx, "lot1", watcher))

	bidderA := identity.Identity{UserID: "userA", DisplayName: "Ana Souza"}
	bidderC := identity.Identity{UserID: "userC", DisplayName: "Carla Dias"}

	_, err := reg.PlaceBid(ctx, "lot1", bidderA, 10000)
	require.True(t, errors.Is(err, auctionerrors.ErrStaleBid))

	_, err = reg.PlaceBid(ctx, "lot1", bidderA, 10001)
	require.NoError(t, err)

	_, err = reg.PlaceBid(ctx, "lot1", identity.Identity{}, 20000)
	require.True(t, errors.Is(err, auctionerrors.ErrUnauthenticated))

	_, err = reg.PlaceBid(ctx, "lot1", bidderC, 15000)
	require.NoError(t, err)

	accepted := watcher.accepted()
	require.Len(t, accepted, 2)
	require.Equal(t, int64(10001), accepted[0].HighestBid)
	require.Equal(t, int64(15000), accepted[1].HighestBid)
	require.Equal(t, 1, accepted[0].TotalBids)
	require.Equal(t, 2, accepted[1].TotalBids)

	late := newCaptureObserver("late")
	require.NoError(t, reg.Join(ctx, "lot1", late))
	history := late.Events()[0].(HistoryEvent)
	require.Len(t, history.Bids, 2)
	require.Equal(t, int64(15000), history.HighestBid)
	require.False(t, history.Bids[0].IsWinning)
	require.True(t, history.Bids[1].IsWinning)
}

func TestRoom_TransientStoreFailureLeavesNoTrace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := repository.NewMockLotStore(ctrl)
	reg := NewRegistry(store, nil, 0)

	lot := model.Lot{LotID: "lot1", Status: model.LotStatusLive, CurrentBid: 10000}
	store.EXPECT().GetLot(gomock.Any(), "lot1").Return(lot, nil)
	store.EXPECT().GetHighestBid(gomock.Any(), "lot1").Return(int64(0), auctionerrors.ErrNoBids)
	store.EXPECT().GetRecentBids(gomock.Any(), "lot1", DefaultHistoryLimit).Return(nil, nil)

	// the first write blows up; the second lands
	gomock.InOrder(
		store.EXPECT().RecordBid(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")),
		store.EXPECT().RecordBid(gomock.Any(), gomock.Any()).Return(nil),
	)

	watcher := newCaptureObserver("watcher")
	require.NoError(t, reg.Join(ctx, "lot1", watcher))

	_, err := reg.PlaceBid(ctx, "lot1", identity.Identity{UserID: "userA"}, 99999)
	require.True(t, errors.Is(err, auctionerrors.ErrTransient))

	// the failed attempt left no trace: 50000 is validated against the
	// pre-failure highest of 10000 and accepted
	bid, err := reg.PlaceBid(ctx, "lot1", identity.Identity{UserID: "userB"}, 50000)
	require.NoError(t, err)
	require.Equal(t, int64(50000), bid.Amount)

	accepted := watcher.accepted()
	require.Len(t, accepted, 1)
	require.Equal(t, int64(50000), accepted[0].HighestBid)
	require.Equal(t, 1, accepted[0].TotalBids)
}

func TestRoom_HydrationReadRepair(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := repository.NewMockLotStore(ctrl)
	reg := NewRegistry(store, nil, 0)

	// the lot row drifted behind the ledger: row says 5000, ledger max is
	// 7000. Hydration must trust the ledger.
	lot := model.Lot{LotID: "lot1", Status: model.LotStatusLive, CurrentBid: 5000}
	ledger := []model.Bid{
		{BidID: "bid1", LotID: "lot1", BidderID: "user1", Amount: 7000, CreatedAt: time.Now().UTC(), IsWinning: true},
	}
	store.EXPECT().GetLot(gomock.Any(), "lot1").Return(lot, nil)
	store.EXPECT().GetHighestBid(gomock.Any(), "lot1").Return(int64(7000), nil)
	store.EXPECT().GetRecentBids(gomock.Any(), "lot1", DefaultHistoryLimit).Return(ledger, nil)

	obs := newCaptureObserver("conn1")
	require.NoError(t, reg.Join(ctx, "lot1", obs))

	history := obs.Events()[0].(HistoryEvent)
	require.Equal(t, int64(7000), history.HighestBid)

	// a bid at the stale row value must lose against the repaired highest
	_, err := reg.PlaceBid(ctx, "lot1", identity.Identity{UserID: "user2"}, 6000)
	require.True(t, errors.Is(err, auctionerrors.ErrStaleBid))
}

func TestRoom_HydrationFailureRejectsJoin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := repository.NewMockLotStore(ctrl)
	reg := NewRegistry(store, nil, 0)

	lot := model.Lot{LotID: "lot1", Status: model.LotStatusLive, CurrentBid: 10000}
	gomock.InOrder(
		store.EXPECT().GetLot(gomock.Any(), "lot1").Return(model.Lot{}, errors.New("connection refused")),
		store.EXPECT().GetLot(gomock.Any(), "lot1").Return(lot, nil),
	)
	store.EXPECT().GetHighestBid(gomock.Any(), "lot1").Return(int64(0), auctionerrors.ErrNoBids)
	store.EXPECT().GetRecentBids(gomock.Any(), "lot1", DefaultHistoryLimit).Return(nil, nil)

	err := reg.Join(context.Background(), "lot1", newCaptureObserver("conn1"))
	require.True(t, errors.Is(err, auctionerrors.ErrTransient))

	// the room stays usable: hydration is retried on the next operation
	obs := newCaptureObserver("conn2")
	require.NoError(t, reg.Join(context.Background(), "lot1", obs))
	require.Equal(t, int64(10000), obs.Events()[0].(HistoryEvent).HighestBid)
}

func TestRoom_ConcurrentOrderedBidsAllAccepted(t *testing.T) {
	// N concurrent bidders with strictly increasing amounts, arrival order
	// enforced by a token chain: every one of them must be accepted and
	// the final highest must be the maximum.
	const n = 50
	ctx := context.Background()
	reg, repo := liveLotRegistry(t, "lot1", 0)

	watcher := newCaptureObserver("watcher")
	require.NoError(t, reg.Join(ctx, "lot1", watcher))

	errs := make([]error, n)
	tokens := make([]chan struct{}, n+1)
	for i := range tokens {
		tokens[i] = make(chan struct{}, 1)
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-tokens[i]
			bidder := identity.Identity{UserID: fmt.Sprintf("user%d", i)}
			_, errs[i] = reg.PlaceBid(ctx, "lot1", bidder, int64((i+1)*1000))
			tokens[i+1] <- struct{}{}
		}(i)
	}
	tokens[0] <- struct{}{}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "bid %d should have been accepted", i)
	}

	highest, err := repo.GetHighestBid(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, int64(n*1000), highest)

	accepted := watcher.accepted()
	require.Len(t, accepted, n)
	require.Equal(t, n, accepted[n-1].TotalBids)
}

func TestRoom_ConcurrentArbitraryBidsKeepInvariant(t *testing.T) {
	// Arbitrary interleaving: whatever subset is accepted, the final
	// highest equals the maximum accepted amount, the ledger agrees, and
	// exactly one bid holds the winner flag.
	const n = 50
	ctx := context.Background()
	reg, repo := liveLotRegistry(t, "lot1", 0)

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bidder := identity.Identity{UserID: fmt.Sprintf("user%d", i)}
			_, results[i] = reg.PlaceBid(ctx, "lot1", bidder, int64((i+1)*100))
		}(i)
	}
	wg.Wait()

	var acceptedMax int64
	acceptedCount := 0
	for i, err := range results {
		if err == nil {
			acceptedCount++
			if amt := int64((i + 1) * 100); amt > acceptedMax {
				acceptedMax = amt
			}
		} else {
			require.True(t, errors.Is(err, auctionerrors.ErrStaleBid), "only stale rejections are possible, got %v", err)
		}
	}
	require.GreaterOrEqual(t, acceptedCount, 1)

	highest, err := repo.GetHighestBid(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, acceptedMax, highest)

	bids, err := repo.GetRecentBids(ctx, "lot1", 0)
	require.NoError(t, err)
	require.Len(t, bids, acceptedCount)
	winners := 0
	for _, b := range bids {
		if b.IsWinning {
			winners++
			require.Equal(t, acceptedMax, b.Amount)
		}
	}
	require.Equal(t, 1, winners)
}

func TestRoom_HistoryBounded(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SeedLot(ctx, model.Lot{LotID: "lot1", Status: model.LotStatusLive}))
	reg := NewRegistry(repo, nil, 5)

	bidder := identity.Identity{UserID: "user1"}
	for i := 1; i <= 8; i++ {
		_, err := reg.PlaceBid(ctx, "lot1", bidder, int64(i*100))
		require.NoError(t, err)
	}

	obs := newCaptureObserver("conn1")
	require.NoError(t, reg.Join(ctx, "lot1", obs))
	history := obs.Events()[0].(HistoryEvent)
	require.Len(t, history.Bids, 5, "history is capped at the configured limit")
	require.Equal(t, int64(400), history.Bids[0].Amount, "oldest entries are evicted first")
	require.Equal(t, int64(800), history.HighestBid)
}
