package auction

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// Settlement is the outcome of concluding the live auction
type Settlement struct {
	Auction Auction `json:"auction"`
	// TokenID is set when an artwork was minted
	TokenID            *uint64       `json:"token_id,omitempty"`
	DistributionAmount math.Int      `json:"distribution_amount"`
	Instructions       []Instruction `json:"instructions"`
	// Next is the auction that went live, if the pending stack had one
	Next *Auction `json:"next,omitempty"`
}

// BidShare is one bidder's aggregated bids and share of the total
type BidShare struct {
	Bidder Addr
	Total  math.Int
	Ratio  math.LegacyDec
}

// BidRatios sums bids per bidder, in order of first appearance, and computes
// each bidder's truncated fraction of all bids. It returns nil when there is
// nothing to split or the total does not fit in an Int.
func BidRatios(bids []Bid) []BidShare {
	total, err := sumBids(bids)
	if err != nil || total.IsZero() {
		return nil
	}

	index := make(map[Addr]int)
	var shares []BidShare
	for _, b := range bids {
		if i, ok := index[b.Bidder]; ok {
			// bounded by total
			shares[i].Total = shares[i].Total.Add(b.Amount)
			continue
		}
		index[b.Bidder] = len(shares)
		shares = append(shares, BidShare{Bidder: b.Bidder, Total: b.Amount})
	}

	dTotal := math.LegacyNewDecFromInt(total)
	for i := range shares {
		shares[i].Ratio = math.LegacyNewDecFromInt(shares[i].Total).QuoTruncate(dTotal)
	}
	return shares
}

// RewardDistribution caps the configured per-round reward at half the
// treasury balance. A failed balance query falls back to the configured amount.
func RewardDistribution(ctx context.Context, cfg *Config, treasury BalanceQuerier) math.Int {
	if treasury == nil {
		return cfg.RewardAmount
	}
	balance, err := treasury.Balance(ctx, cfg.RewardDenom)
	if err != nil || balance.IsNil() {
		return cfg.RewardAmount
	}
	return math.MinInt(cfg.RewardAmount, balance.QuoRaw(2))
}

// Conclude closes the live auction. With at least one bid it mints the
// artwork to the highest bidder, pays the proceeds recipient and splits the
// reward pool between bidders (pro rata) and curators (evenly). The next
// pending auction then goes live.
func (s *State) Conclude(ctx context.Context, treasury BalanceQuerier, now time.Time) (*Settlement, error) {
	live, ok := s.Live.Get()
	if !ok {
		return nil, fmt.Errorf("live auction: %w", ErrNotFound)
	}
	if now.Before(live.AuctionEndTime) {
		return nil, fmt.Errorf("%w until %s", ErrAuctionStillLive, live.AuctionEndTime.UTC().Format(time.RFC3339))
	}

	cfg := &s.Config
	out := &Settlement{DistributionAmount: math.ZeroInt(), Instructions: []Instruction{}}

	if live.HasBids() {
		winner := live.HighestBid
		tokenID := cfg.Sequence.NextTokenID()
		out.TokenID = &tokenID

		out.Instructions = append(out.Instructions,
			Mint(cfg.Collection, winner.Bidder, tokenID, live.SubmissionInfo.Submission.TokenURI, NewCoin(cfg.MintDenom, cfg.MintCost)),
			TransferNative(live.SubmissionInfo.Submission.ProceedRecipient, NewCoin(cfg.BidDenom, winner.Amount), ReasonProceeds),
		)

		if cfg.HasReward() {
			pool := RewardDistribution(ctx, cfg, treasury)
			out.DistributionAmount = pool
			out.Instructions = append(out.Instructions, rewardInstructions(cfg.RewardDenom, pool, live)...)
		}
	}

	concluded, _ := s.Live.take()
	out.Auction = *concluded.clone()
	if next := s.activateNext(now); next != nil {
		out.Next = next.clone()
	}
	return out, nil
}

func rewardInstructions(denom string, pool math.Int, a *Auction) []Instruction {
	if !pool.IsPositive() {
		return nil
	}
	var msgs []Instruction
	for _, share := range BidRatios(a.Bids) {
		amt := share.Ratio.MulInt(pool).TruncateInt()
		if amt.IsPositive() {
			msgs = append(msgs, TransferNative(share.Bidder, NewCoin(denom, amt), ReasonBidderReward))
		}
	}

	curators := a.Curators()
	if len(curators) == 0 {
		return msgs
	}
	each := math.LegacyOneDec().QuoTruncate(math.LegacyNewDec(int64(len(curators)))).MulInt(pool).TruncateInt()
	if !each.IsPositive() {
		return msgs
	}
	for _, c := range curators {
		msgs = append(msgs, TransferNative(c, NewCoin(denom, each), ReasonCuratorReward))
	}
	return msgs
}
