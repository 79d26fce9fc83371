package models

import "time"

// Lot statuses as stored in the vehicles table.
const (
	LotStatusUpcoming = "upcoming"
	LotStatusLive     = "live"
	LotStatusSold     = "sold"
	LotStatusClosed   = "closed"
)

// User represents a registered bidder
type User struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Lot represents a vehicle under auction. CurrentBid is in integer
// minor currency units (cents); it starts at the ingestion seed price
// and only ever rises through accepted bids.
type Lot struct {
	LotID       string     `json:"lot_id"`
	LotNumber   string     `json:"lot_number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CurrentBid  int64      `json:"current_bid"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
}

// Bid is an immutable offer on a lot. Amount is in cents. IsWinning is
// the only field that ever changes after creation: it flips to false
// when a strictly higher bid supersedes it.
type Bid struct {
	BidID      string    `json:"bid_id"`
	LotID      string    `json:"lot_id"`
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder_name"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	IsWinning  bool      `json:"is_winning"`
}

// Open reports whether the lot still accepts bids at the given time.
func (l Lot) Open(now time.Time) bool {
	if l.Status != LotStatusLive && l.Status != LotStatusUpcoming {
		return false
	}
	if l.ClosesAt != nil && !now.Before(*l.ClosesAt) {
		return false
	}
	return true
}
