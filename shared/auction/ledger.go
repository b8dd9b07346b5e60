package auction

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// BidReceipt is returned for an accepted bid
type BidReceipt struct {
	Bid      Bid `json:"bid"`
	Previous Bid `json:"previous"`
	// Refund returns the displaced highest bid; nil for the first bid
	Refund *Instruction `json:"refund,omitempty"`
}

// assertBidAsset accepts exactly one positive coin of the bid denom
func assertBidAsset(funds []Coin, bidDenom string) (Coin, error) {
	if len(funds) != 1 {
		return Coin{}, fmt.Errorf("%w: none or more than 1 asset sent", ErrInvalidBidAsset)
	}
	c := funds[0]
	if c.Denom != bidDenom {
		return Coin{}, fmt.Errorf("%w: bid asset %s not sent", ErrInvalidBidAsset, bidDenom)
	}
	if err := c.Validate(); err != nil || !c.Amount.IsPositive() {
		return Coin{}, fmt.Errorf("%w: bid amount must be positive", ErrInvalidBidAsset)
	}
	return c, nil
}

// PlaceBid records a bid on the live auction. The first bid is taken as is;
// every later bid must be strictly higher and refunds the bidder it displaces.
func (s *State) PlaceBid(bidder Addr, funds []Coin, now time.Time) (BidReceipt, error) {
	coin, err := assertBidAsset(funds, s.Config.BidDenom)
	if err != nil {
		return BidReceipt{}, err
	}

	live, ok := s.Live.Get()
	if !ok {
		return BidReceipt{}, fmt.Errorf("live auction: %w", ErrNotFound)
	}
	if now.After(live.AuctionEndTime) {
		return BidReceipt{}, ErrAuctionEnded
	}

	bid := Bid{Bidder: bidder, Amount: coin.Amount}
	receipt := BidReceipt{Bid: bid, Previous: live.HighestBid}

	if len(live.Bids) > 0 {
		highest := live.HighestBid
		if !bid.Amount.GT(highest.Amount) {
			return BidReceipt{}, fmt.Errorf("%w: current highest bid is %s", ErrBidTooLow, highest.Amount)
		}
		refund := TransferNative(highest.Bidder, NewCoin(s.Config.BidDenom, highest.Amount), ReasonRefund)
		receipt.Refund = &refund
	}

	// settlement sums every bid, so the sum has to stay representable
	total, err := sumBids(live.Bids)
	if err == nil {
		_, err = total.SafeAdd(bid.Amount)
	}
	if err != nil {
		return BidReceipt{}, fmt.Errorf("%w: bid total overflows: %v", ErrInvalidBidAsset, err)
	}

	live.Bids = append(live.Bids, bid)
	live.HighestBid = bid
	return receipt, nil
}

// sumBids totals bids, failing instead of panicking on overflow
func sumBids(bids []Bid) (math.Int, error) {
	total := math.ZeroInt()
	for _, b := range bids {
		next, err := total.SafeAdd(b.Amount)
		if err != nil {
			return math.Int{}, err
		}
		total = next
	}
	return total, nil
}
