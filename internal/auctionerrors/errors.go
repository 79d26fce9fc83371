package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrLotNotFound  = errors.New("lot not found")
	ErrNoBids       = errors.New("no bids found for lot")
	ErrUserNotFound = errors.New("user not found")
)

// Bid rejection errors. These are policy decisions: they are reported to
// the bidder and never retried automatically.
var (
	ErrUnauthenticated = errors.New("bidding requires a signed-in user")
	ErrInvalidAmount   = errors.New("bid amount must be a positive number of cents")
	ErrStaleBid        = errors.New("bid amount must exceed the current highest bid")
	ErrLotClosed       = errors.New("lot is no longer open for bidding")
)

// ErrTransient marks infrastructure failures (store unreachable). The bid
// never happened; the client may retry.
var ErrTransient = errors.New("bid could not be recorded, try again")

// Reason codes carried on the wire in bid_rejected events.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonInvalidAmount   = "invalid_amount"
	ReasonStaleBid        = "stale_bid"
	ReasonLotClosed       = "lot_closed"
	ReasonTransient       = "transient"
)

// Reason maps a rejection error chain to its wire reason code. Unknown
// errors map to transient: from the bidder's point of view anything that
// is not a policy rejection is retryable infrastructure trouble.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return ReasonUnauthenticated
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrStaleBid):
		return ReasonStaleBid
	case errors.Is(err, ErrLotClosed):
		return ReasonLotClosed
	default:
		return ReasonTransient
	}
}
