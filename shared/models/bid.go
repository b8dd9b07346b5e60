package models

import (
	"time"

	"github.com/The-Membrane/brane-auction/shared/auction"
)

// BidRequest is the body of POST /api/v1/auctions/live/bids
type BidRequest struct {
	Bidder string         `json:"bidder"`
	Funds  []auction.Coin `json:"funds"`
}

// BidResponse represents the API response after placing a bid
type BidResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	HighestBid auction.Bid          `json:"highest_bid"`
	Refund     *auction.Instruction `json:"refund,omitempty"`
	EventID    string               `json:"event_id,omitempty"`
}

// BidEvent represents an event that gets published when a bid is accepted
// This is sent to:
// 1. Redis Pub/Sub (for real-time WebSocket broadcast)
// 2. NATS JetStream (for archival to PostgreSQL)
type BidEvent struct {
	EventID     string               `json:"event_id"`
	AuctionURI  string               `json:"auction_uri"`
	Bidder      string               `json:"bidder"`
	Amount      string               `json:"amount"`
	Denom       string               `json:"denom"`
	PreviousBid string               `json:"previous_bid"`
	Refund      *auction.Instruction `json:"refund,omitempty"`
	EndTime     time.Time            `json:"end_time"`
	Timestamp   time.Time            `json:"timestamp"`
}
