package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
)

// LotStore defines the persistence boundary for lots, the append-only bid
// ledger and the user directory. Same-lot RecordBid calls are serialized
// upstream by the lot's auction room, so implementations only need
// row-level atomicity, never lot-level locking.
type LotStore interface {
	GetLot(ctx context.Context, lotID string) (model.Lot, error)
	GetHighestBid(ctx context.Context, lotID string) (int64, error)
	GetRecentBids(ctx context.Context, lotID string, limit int) ([]model.Bid, error)
	RecordBid(ctx context.Context, bid model.Bid) error
	SeedLot(ctx context.Context, lot model.Lot) error
	GetUser(ctx context.Context, userID string) (model.User, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of LotStore,
// used for development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	lots  map[string]model.Lot   // key: lotID
	bids  map[string][]model.Bid // key: lotID -> bids in insertion order
	users map[string]model.User  // key: userID
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		lots:  make(map[string]model.Lot),
		bids:  make(map[string][]model.Bid),
		users: make(map[string]model.User),
	}
}

// GetLot returns the lot record for lotID
func (r *MemoryRepo) GetLot(_ context.Context, lotID string) (model.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lot, ok := r.lots[lotID]
	if !ok {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, auctionerrors.ErrLotNotFound)
	}
	return lot, nil
}

// GetHighestBid returns the maximum bid amount in the ledger for lotID
func (r *MemoryRepo) GetHighestBid(_ context.Context, lotID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[lotID]
	if !ok || len(bids) == 0 {
		return 0, fmt.Errorf("get highest bid for lot %s: %w", lotID, auctionerrors.ErrNoBids)
	}

	highest := bids[0].Amount
	for _, b := range bids[1:] {
		if b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest, nil
}

// GetRecentBids returns up to limit bids for a lot, ascending by creation
// time, with bidder display names resolved from the user directory.
func (r *MemoryRepo) GetRecentBids(_ context.Context, lotID string, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := append([]model.Bid(nil), r.bids[lotID]...)
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	if limit > 0 && len(bids) > limit {
		bids = bids[len(bids)-limit:]
	}
	for i := range bids {
		if u, ok := r.users[bids[i].BidderID]; ok {
			bids[i].BidderName = u.DisplayName
		}
	}
	return bids, nil
}

// RecordBid appends the bid to the ledger, clears the winner flag on the
// superseded bid and raises the lot's current bid. The caller (the lot's
// room) guarantees the amount strictly exceeds the previous highest.
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lot, ok := r.lots[bid.LotID]
	if !ok {
		return fmt.Errorf("record bid for lot %s: %w", bid.LotID, auctionerrors.ErrLotNotFound)
	}

	existing := r.bids[bid.LotID]
	for i := range existing {
		existing[i].IsWinning = false
	}
	bid.IsWinning = true
	r.bids[bid.LotID] = append(existing, bid)

	if bid.Amount > lot.CurrentBid {
		lot.CurrentBid = bid.Amount
		r.lots[bid.LotID] = lot
	}
	return nil
}

// SeedLot upserts a lot record on behalf of ingestion or an admin. Once
// the ledger holds any bid for the lot, the stored current bid belongs to
// the bidding path and seeding never touches it; it also never lowers a
// current bid on a bid-free lot.
func (r *MemoryRepo) SeedLot(_ context.Context, lot model.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.lots[lot.LotID]; ok {
		if len(r.bids[lot.LotID]) > 0 || lot.CurrentBid < existing.CurrentBid {
			lot.CurrentBid = existing.CurrentBid
		}
	}
	r.lots[lot.LotID] = lot
	return nil
}

// GetUser returns a user directory entry
func (r *MemoryRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

// AddUser registers a user in the in-memory directory.
func (r *MemoryRepo) AddUser(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
}
