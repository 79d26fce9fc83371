package helpers

// Request/Response DTOs
type PlaceBidRequest struct {
	LotID  string `json:"lot_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID      string `json:"bid_id"`
	LotID      string `json:"lot_id"`
	BidderID   string `json:"bidder_id"`
	BidderName string `json:"bidder_name"`
	Amount     int64  `json:"amount"`
	CreatedAt  string `json:"created_at"`
	IsWinning  bool   `json:"is_winning"`
}

type LotResponse struct {
	LotID       string `json:"lot_id"`
	LotNumber   string `json:"lot_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CurrentBid  int64  `json:"current_bid"`
	ClosesAt    string `json:"closes_at,omitempty"`
}
