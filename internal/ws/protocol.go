package ws

import "encoding/json"

// Client-to-server message types.
const (
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgPlaceBid = "place_bid"
)

// Server-to-client event types not owned by the room package.
const (
	EventBidRejected = "bid_rejected"
	EventError       = "error"
)

// ClientMessage is the single inbound envelope. Amount is in cents and
// only meaningful for place_bid.
type ClientMessage struct {
	Type   string `json:"type"`
	LotID  string `json:"lot_id"`
	Amount int64  `json:"amount,omitempty"`
}

// ServerMessage is the outbound envelope: a type tag plus the event
// payload.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BidRejectedPayload is unicast to the bidder whose bid was refused.
type BidRejectedPayload struct {
	LotID   string `json:"lot_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ErrorPayload reports a protocol-level problem, such as an unrecognized
// message type or an undecodable frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, data any) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: msgType, Data: data})
}
