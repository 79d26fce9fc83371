// Package room holds the per-lot auction rooms: the serialization domain
// where every bid for a lot is validated and recorded one at a time, and
// the registry that fans accepted bids out to observers.
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/queue"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

// DefaultHistoryLimit bounds the in-memory recent-bid list per room.
const DefaultHistoryLimit = 100

// storeTimeout bounds each hydration read and bid write.
const storeTimeout = 5 * time.Second

// observerSet is the registry surface a room uses: it attaches joining
// observers and delivers events to everyone watching the lot.
type observerSet interface {
	attach(lotID string, obs Observer)
	Broadcast(lotID string, event Event)
}

// Room is the authoritative in-memory view of one lot's auction. All
// mutating operations go through a single goroutine draining the ops
// channel, so no two bids for the same lot are ever validated
// concurrently. The cached state is rebuilt from the store on demand; the
// room is a cache, never the source of truth.
type Room struct {
	lotID        string
	store        repository.LotStore
	observers    observerSet
	publisher    queue.Publisher
	historyLimit int

	ops chan func()

	// Owned by the run goroutine; never touched from outside it.
	lot       model.Lot
	highest   int64
	history   []model.Bid
	totalBids int
	hydrated  bool
}

func newRoom(lotID string, store repository.LotStore, observers observerSet, publisher queue.Publisher, historyLimit int) *Room {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	r := &Room{
		lotID:        lotID,
		store:        store,
		observers:    observers,
		publisher:    publisher,
		historyLimit: historyLimit,
		ops:          make(chan func(), 64),
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for op := range r.ops {
		op()
	}
}

// Join attaches the observer to the room and replays the current bid
// history to it alone. Attach and replay happen inside the room's op
// queue, so a bid accepted right after the join is always delivered after
// the history it is missing from.
func (r *Room) Join(ctx context.Context, obs Observer) error {
	reply := make(chan error, 1)
	r.ops <- func() {
		if err := r.hydrate(); err != nil {
			reply <- err
			return
		}
		r.observers.attach(r.lotID, obs)
		obs.Send(HistoryEvent{
			LotID:      r.lotID,
			HighestBid: r.highest,
			Bids:       append([]model.Bid(nil), r.history...),
		})
		reply <- nil
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlaceBid validates the bid against the room's cached state and, when
// accepted, records it durably, updates the cache and broadcasts the
// acceptance to every observer. Rejections are returned to the caller for
// unicast delivery. A caller going away does not cancel the persistence
// write; the broadcast still reaches the remaining observers.
func (r *Room) PlaceBid(ctx context.Context, bidder identity.Identity, amount int64) (model.Bid, error) {
	type result struct {
		bid model.Bid
		err error
	}
	reply := make(chan result, 1)
	r.ops <- func() {
		bid, err := r.placeBid(bidder, amount)
		reply <- result{bid: bid, err: err}
	}
	select {
	case res := <-reply:
		return res.bid, res.err
	case <-ctx.Done():
		return model.Bid{}, ctx.Err()
	}
}

// placeBid runs on the room goroutine. All checks plus the store write
// complete before the next queued operation is looked at.
func (r *Room) placeBid(bidder identity.Identity, amount int64) (model.Bid, error) {
	if err := r.hydrate(); err != nil {
		return model.Bid{}, err
	}

	if bidder.Anonymous() {
		return model.Bid{}, auctionerrors.ErrUnauthenticated
	}
	if amount <= 0 {
		return model.Bid{}, auctionerrors.ErrInvalidAmount
	}
	if amount <= r.highest {
		return model.Bid{}, fmt.Errorf("%w: current highest is %d", auctionerrors.ErrStaleBid, r.highest)
	}
	now := time.Now().UTC()
	if !r.lot.Open(now) {
		return model.Bid{}, auctionerrors.ErrLotClosed
	}

	bid := model.Bid{
		BidID:      utils.GenerateID(),
		LotID:      r.lotID,
		BidderID:   bidder.UserID,
		BidderName: bidder.DisplayName,
		Amount:     amount,
		CreatedAt:  now,
		IsWinning:  true,
	}

	// Detached context: a disconnecting bidder must not cancel the write.
	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.RecordBid(storeCtx, bid); err != nil {
		if errors.Is(err, auctionerrors.ErrLotClosed) || errors.Is(err, auctionerrors.ErrLotNotFound) {
			return model.Bid{}, err
		}
		utils.Error("bid write failed, rejecting as transient", map[string]any{
			"lot_id":    r.lotID,
			"bidder_id": bidder.UserID,
			"amount":    amount,
			"error":     err.Error(),
		})
		return model.Bid{}, fmt.Errorf("%w: %v", auctionerrors.ErrTransient, err)
	}

	r.highest = amount
	r.lot.CurrentBid = amount
	for i := range r.history {
		r.history[i].IsWinning = false
	}
	r.history = append(r.history, bid)
	if len(r.history) > r.historyLimit {
		r.history = r.history[len(r.history)-r.historyLimit:]
	}
	r.totalBids++

	accepted := BidAcceptedEvent{
		LotID:      r.lotID,
		Bid:        bid,
		TotalBids:  r.totalBids,
		HighestBid: r.highest,
	}
	r.observers.Broadcast(r.lotID, accepted)

	// Broker publish is best effort and must not hold up the room.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		_ = r.publisher.PublishBidAccepted(pubCtx, queue.BidAcceptedEvent{
			LotID:     bid.LotID,
			BidID:     bid.BidID,
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
			TotalBids: accepted.TotalBids,
			PlacedAt:  bid.CreatedAt,
		})
	}()

	utils.Info("bid accepted", map[string]any{
		"lot_id":    bid.LotID,
		"bid_id":    bid.BidID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
	return bid, nil
}

// hydrate populates the cache from the store on first use. The cached
// highest is re-derived from the ledger maximum rather than trusted from
// the lot row, which self-heals any drift between the two tables; the
// ingestion seed still applies while the ledger is empty.
func (r *Room) hydrate() error {
	if r.hydrated {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	lot, err := r.store.GetLot(ctx, r.lotID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrLotNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", auctionerrors.ErrTransient, err)
	}

	highest := lot.CurrentBid
	ledgerMax, err := r.store.GetHighestBid(ctx, r.lotID)
	switch {
	case err == nil:
		if ledgerMax > highest {
			highest = ledgerMax
		}
	case errors.Is(err, auctionerrors.ErrNoBids):
		// seed price stands
	default:
		return fmt.Errorf("%w: %v", auctionerrors.ErrTransient, err)
	}

	bids, err := r.store.GetRecentBids(ctx, r.lotID, r.historyLimit)
	if err != nil {
		return fmt.Errorf("%w: %v", auctionerrors.ErrTransient, err)
	}

	r.lot = lot
	r.highest = highest
	r.history = bids
	r.totalBids = len(bids)
	r.hydrated = true
	utils.Info("auction room hydrated", map[string]any{
		"lot_id":  r.lotID,
		"highest": highest,
		"bids":    len(bids),
	})
	return nil
}
