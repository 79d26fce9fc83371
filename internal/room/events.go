package room

import (
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
)

// Event is a server-to-observer message. Each variant carries its wire
// name so transports can tag the envelope without type switching twice.
type Event interface {
	Name() string
}

// HistoryEvent is the ordered bid history replayed to a single joining
// observer. It is never broadcast.
type HistoryEvent struct {
	LotID      string      `json:"lot_id"`
	HighestBid int64       `json:"highest_bid"`
	Bids       []model.Bid `json:"bids"`
}

// Name returns the wire tag for the event
func (HistoryEvent) Name() string { return "bid_history" }

// BidAcceptedEvent is broadcast to every observer of a lot, including the
// bidder's own connection, after a bid is validated and durably recorded.
type BidAcceptedEvent struct {
	LotID      string    `json:"lot_id"`
	Bid        model.Bid `json:"bid"`
	TotalBids  int       `json:"total_bids"`
	HighestBid int64     `json:"highest_bid"`
}

// Name returns the wire tag for the event
func (BidAcceptedEvent) Name() string { return "bid_accepted" }

// Observer is a connection attached to a room. Send must never block:
// implementations buffer internally and shed the connection when the
// buffer overflows, so one slow observer cannot stall fan-out.
type Observer interface {
	ID() string
	Send(event Event)
}
