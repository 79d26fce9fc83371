package repository

import (
	"context"
	"errors"
	"time"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

// LotSnapshot is the last known read-path view of a lot: the lot record,
// the ledger max and the recent history. It is what observers get served
// when the durable store is unreachable.
type LotSnapshot struct {
	Lot        model.Lot   `json:"lot"`
	HighestBid int64       `json:"highest_bid"`
	HasBids    bool        `json:"has_bids"`
	Bids       []model.Bid `json:"bids"`
	SavedAt    time.Time   `json:"saved_at"`
}

// SnapshotCache stores per-lot snapshots. Implementations are best-effort:
// a failed write is logged and forgotten.
type SnapshotCache interface {
	GetLotSnapshot(ctx context.Context, lotID string) (LotSnapshot, error)
	SetLotSnapshot(ctx context.Context, lotID string, snap LotSnapshot) error
}

// SnapshotStore decorates a LotStore with a snapshot cache. Reads fall
// back to the last saved snapshot when the inner store fails, since a
// stale-but-available view beats an unavailable room; writes always go to
// the inner store and refresh the snapshot on success.
type SnapshotStore struct {
	inner LotStore
	cache SnapshotCache
}

// NewSnapshotStore wraps store with cache.
func NewSnapshotStore(store LotStore, cache SnapshotCache) *SnapshotStore {
	return &SnapshotStore{inner: store, cache: cache}
}

// GetLot reads through to the inner store, refreshing the snapshot on
// success and serving the snapshot when the store is unreachable.
func (s *SnapshotStore) GetLot(ctx context.Context, lotID string) (model.Lot, error) {
	lot, err := s.inner.GetLot(ctx, lotID)
	if err == nil {
		s.refresh(ctx, lot)
		return lot, nil
	}
	if errors.Is(err, auctionerrors.ErrLotNotFound) {
		return model.Lot{}, err
	}
	snap, cacheErr := s.cache.GetLotSnapshot(ctx, lotID)
	if cacheErr != nil {
		return model.Lot{}, err
	}
	utils.Warn("lot store unreachable, serving lot snapshot", map[string]any{
		"lot_id":   lotID,
		"saved_at": snap.SavedAt,
		"error":    err.Error(),
	})
	return snap.Lot, nil
}

// GetHighestBid falls back to the snapshot's ledger max on store failure.
func (s *SnapshotStore) GetHighestBid(ctx context.Context, lotID string) (int64, error) {
	highest, err := s.inner.GetHighestBid(ctx, lotID)
	if err == nil || errors.Is(err, auctionerrors.ErrNoBids) {
		return highest, err
	}
	snap, cacheErr := s.cache.GetLotSnapshot(ctx, lotID)
	if cacheErr != nil {
		return 0, err
	}
	if !snap.HasBids {
		return 0, auctionerrors.ErrNoBids
	}
	return snap.HighestBid, nil
}

// GetRecentBids falls back to the snapshot's cached history on store failure.
func (s *SnapshotStore) GetRecentBids(ctx context.Context, lotID string, limit int) ([]model.Bid, error) {
	bids, err := s.inner.GetRecentBids(ctx, lotID, limit)
	if err == nil {
		s.refreshBids(ctx, lotID, bids)
		return bids, nil
	}
	snap, cacheErr := s.cache.GetLotSnapshot(ctx, lotID)
	if cacheErr != nil {
		return nil, err
	}
	bids = snap.Bids
	if limit > 0 && len(bids) > limit {
		bids = bids[len(bids)-limit:]
	}
	return bids, nil
}

// RecordBid always goes to the inner store; the snapshot is refreshed only
// after the durable write succeeded.
func (s *SnapshotStore) RecordBid(ctx context.Context, bid model.Bid) error {
	if err := s.inner.RecordBid(ctx, bid); err != nil {
		return err
	}
	snap, err := s.cache.GetLotSnapshot(ctx, bid.LotID)
	if err != nil {
		snap = LotSnapshot{}
	}
	bid.IsWinning = true
	for i := range snap.Bids {
		snap.Bids[i].IsWinning = false
	}
	snap.Bids = append(snap.Bids, bid)
	snap.HasBids = true
	if bid.Amount > snap.HighestBid {
		snap.HighestBid = bid.Amount
	}
	if bid.Amount > snap.Lot.CurrentBid {
		snap.Lot.CurrentBid = bid.Amount
	}
	snap.SavedAt = time.Now().UTC()
	if err := s.cache.SetLotSnapshot(ctx, bid.LotID, snap); err != nil {
		utils.Warn("failed to refresh lot snapshot", map[string]any{
			"lot_id": bid.LotID,
			"error":  err.Error(),
		})
	}
	return nil
}

// SeedLot passes through to the inner store
func (s *SnapshotStore) SeedLot(ctx context.Context, lot model.Lot) error {
	return s.inner.SeedLot(ctx, lot)
}

// GetUser passes through to the inner store
func (s *SnapshotStore) GetUser(ctx context.Context, userID string) (model.User, error) {
	return s.inner.GetUser(ctx, userID)
}

func (s *SnapshotStore) refresh(ctx context.Context, lot model.Lot) {
	snap, err := s.cache.GetLotSnapshot(ctx, lot.LotID)
	if err != nil {
		snap = LotSnapshot{}
	}
	snap.Lot = lot
	if lot.CurrentBid > snap.HighestBid && snap.HasBids {
		snap.HighestBid = lot.CurrentBid
	}
	snap.SavedAt = time.Now().UTC()
	if err := s.cache.SetLotSnapshot(ctx, lot.LotID, snap); err != nil {
		utils.Warn("failed to refresh lot snapshot", map[string]any{
			"lot_id": lot.LotID,
			"error":  err.Error(),
		})
	}
}

func (s *SnapshotStore) refreshBids(ctx context.Context, lotID string, bids []model.Bid) {
	snap, err := s.cache.GetLotSnapshot(ctx, lotID)
	if err != nil {
		snap = LotSnapshot{}
	}
	snap.Bids = append([]model.Bid(nil), bids...)
	if len(bids) > 0 {
		snap.HasBids = true
		for _, b := range bids {
			if b.Amount > snap.HighestBid {
				snap.HighestBid = b.Amount
			}
		}
	}
	snap.SavedAt = time.Now().UTC()
	if err := s.cache.SetLotSnapshot(ctx, lotID, snap); err != nil {
		utils.Warn("failed to refresh lot snapshot", map[string]any{
			"lot_id": lotID,
			"error":  err.Error(),
		})
	}
}
