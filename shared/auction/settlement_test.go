package auction

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func liveWithCurators(t *testing.T, curators ...Addr) *State {
	t.Helper()
	st := emptyState()
	st.promote(curatedItem("ipfs://art", curators...), t0)
	return st
}

func afterEnd(st *State) time.Time {
	live, _ := st.Live.Get()
	return live.AuctionEndTime.Add(time.Second)
}

func rewardsByRecipient(msgs []Instruction, reason string) map[Addr]int64 {
	out := map[Addr]int64{}
	for _, m := range msgs {
		if m.Reason == reason {
			out[m.Recipient] += m.Coin.Amount.Int64()
		}
	}
	return out
}

func TestConcludeProRataScenario(t *testing.T) {
	st := liveWithCurators(t, "stars1cur1", "stars1cur2")
	_, err := st.PlaceBid("stars1a", ubid(300), t0)
	require.NoError(t, err)
	_, err = st.PlaceBid("stars1b", ubid(700), t0)
	require.NoError(t, err)

	s, err := st.Conclude(context.Background(), fakeTreasury{balance: math.NewInt(1_000)}, afterEnd(st))
	require.NoError(t, err)
	requireAmount(t, 100, s.DistributionAmount)

	require.Equal(t, InstructionMint, s.Instructions[0].Kind)
	mint := s.Instructions[0]
	require.Equal(t, collection, mint.Collection)
	require.Equal(t, Addr("stars1b"), mint.Recipient)
	require.Equal(t, uint64(0), mint.TokenID)
	require.Equal(t, "ipfs://art", mint.TokenURI)
	require.Equal(t, DefaultMintDenom, mint.Coin.Denom)
	requireAmount(t, 50, mint.Coin.Amount)

	proceeds := s.Instructions[1]
	require.Equal(t, ReasonProceeds, proceeds.Reason)
	require.Equal(t, Addr("stars1proceeds"), proceeds.Recipient)
	requireAmount(t, 700, proceeds.Coin.Amount)

	// both groups receive the full pool of 100
	require.Equal(t, map[Addr]int64{"stars1a": 30, "stars1b": 70}, rewardsByRecipient(s.Instructions, ReasonBidderReward))
	require.Equal(t, map[Addr]int64{"stars1cur1": 50, "stars1cur2": 50}, rewardsByRecipient(s.Instructions, ReasonCuratorReward))
	for _, m := range s.Instructions[2:] {
		require.Equal(t, memeDenom, m.Coin.Denom)
	}

	require.NotNil(t, s.TokenID)
	require.Equal(t, uint64(1), st.Config.Sequence.CurrentTokenID)
	_, live := st.Live.Get()
	require.False(t, live)
}

func TestConcludeAggregatesRepeatBidders(t *testing.T) {
	st := liveWithCurators(t, "stars1cur1")
	for i, b := range []Addr{"stars1a", "stars1b", "stars1a"} {
		_, err := st.PlaceBid(b, ubid(int64(100*(i+1))), t0)
		require.NoError(t, err)
	}

	s, err := st.Conclude(context.Background(), nil, afterEnd(st))
	require.NoError(t, err)

	// a bid 100+300 of 600, b bid 200 of 600
	require.Equal(t, map[Addr]int64{"stars1a": 66, "stars1b": 33}, rewardsByRecipient(s.Instructions, ReasonBidderReward))
	require.Equal(t, map[Addr]int64{"stars1cur1": 100}, rewardsByRecipient(s.Instructions, ReasonCuratorReward))
}

func TestConcludeNeverOverpays(t *testing.T) {
	st := liveWithCurators(t, "stars1c1", "stars1c2", "stars1c3")
	st.Config.RewardAmount = math.NewInt(1_000_003)
	for i, b := range []Addr{"stars1a", "stars1b", "stars1c", "stars1d", "stars1e", "stars1f", "stars1g"} {
		_, err := st.PlaceBid(b, ubid(int64(7*i+13)), t0)
		require.NoError(t, err)
	}

	s, err := st.Conclude(context.Background(), nil, afterEnd(st))
	require.NoError(t, err)

	pool := s.DistributionAmount.Int64()
	var bidders, curators int64
	for _, v := range rewardsByRecipient(s.Instructions, ReasonBidderReward) {
		bidders += v
	}
	for _, v := range rewardsByRecipient(s.Instructions, ReasonCuratorReward) {
		curators += v
	}
	// bidders and curators are bounded by the pool separately, not by their sum
	require.LessOrEqual(t, bidders, pool)
	require.LessOrEqual(t, curators, pool)
	require.Equal(t, int64(333_334*3), curators)
}

func TestRewardDistributionHalvesThinTreasury(t *testing.T) {
	cfg := testConfig()
	ctx := context.Background()

	requireAmount(t, 25, RewardDistribution(ctx, &cfg, fakeTreasury{balance: math.NewInt(51)}))
	requireAmount(t, 100, RewardDistribution(ctx, &cfg, fakeTreasury{balance: math.NewInt(200)}))
	requireAmount(t, 100, RewardDistribution(ctx, &cfg, fakeTreasury{err: errUnavailable}))
	requireAmount(t, 0, RewardDistribution(ctx, &cfg, fakeTreasury{balance: math.ZeroInt()}))
}

func TestConcludeWithoutRewardDenom(t *testing.T) {
	st := liveWithCurators(t, "stars1cur1")
	st.Config.RewardDenom = ""
	_, err := st.PlaceBid("stars1a", ubid(5), t0)
	require.NoError(t, err)

	s, err := st.Conclude(context.Background(), fakeTreasury{balance: math.NewInt(1_000)}, afterEnd(st))
	require.NoError(t, err)
	require.Len(t, s.Instructions, 2)
	require.True(t, s.DistributionAmount.IsZero())
}

func TestConcludeZeroCuratorsSkipsCuratorSplit(t *testing.T) {
	st := liveWithCurators(t)
	_, err := st.PlaceBid("stars1a", ubid(5), t0)
	require.NoError(t, err)

	s, err := st.Conclude(context.Background(), nil, afterEnd(st))
	require.NoError(t, err)
	require.Empty(t, rewardsByRecipient(s.Instructions, ReasonCuratorReward))
	require.Equal(t, map[Addr]int64{"stars1a": 100}, rewardsByRecipient(s.Instructions, ReasonBidderReward))
}

func TestConcludeWithoutBidsAdvancesQueue(t *testing.T) {
	st := genesisState(t)
	st.promote(curatedItem("ipfs://older", "stars1c"), t0)
	st.promote(curatedItem("ipfs://newer", "stars1c"), t0)
	require.Len(t, st.Pending, 2)

	end := afterEnd(st)
	s, err := st.Conclude(context.Background(), nil, end)
	require.NoError(t, err)
	require.Empty(t, s.Instructions)
	require.Nil(t, s.TokenID)
	require.Equal(t, "ipfs://genesis", s.Auction.SubmissionInfo.Submission.TokenURI)

	// pending is a stack: the newest accepted artwork goes live first
	live, ok := st.Live.Get()
	require.True(t, ok)
	require.Equal(t, "ipfs://newer", live.SubmissionInfo.Submission.TokenURI)
	require.Equal(t, end.Add(24*time.Hour), live.AuctionEndTime)
	require.Equal(t, live.SubmissionInfo.Submission.TokenURI, s.Next.SubmissionInfo.Submission.TokenURI)
	require.Len(t, st.Pending, 1)
	require.Equal(t, uint64(0), st.Config.Sequence.CurrentTokenID)
}

func TestConcludeTooEarly(t *testing.T) {
	st := genesisState(t)
	live, _ := st.Live.Get()

	_, err := st.Conclude(context.Background(), nil, live.AuctionEndTime.Add(-time.Second))
	require.ErrorIs(t, err, ErrAuctionStillLive)

	_, err = st.Conclude(context.Background(), nil, live.AuctionEndTime)
	require.NoError(t, err)

	_, err = st.Conclude(context.Background(), nil, live.AuctionEndTime)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBidRatios(t *testing.T) {
	require.Nil(t, BidRatios(nil))

	shares := BidRatios([]Bid{
		{Bidder: "a", Amount: math.NewInt(1)},
		{Bidder: "b", Amount: math.NewInt(2)},
	})
	require.Len(t, shares, 2)
	require.Equal(t, Addr("a"), shares[0].Bidder)
	require.Equal(t, math.LegacyMustNewDecFromStr("0.333333333333333333").String(), shares[0].Ratio.String())
	require.Equal(t, math.LegacyMustNewDecFromStr("0.666666666666666666").String(), shares[1].Ratio.String())
}

func TestBidRatiosOverflowingTotal(t *testing.T) {
	bids := []Bid{
		{Bidder: "stars1a", Amount: pow2(255, 0)},
		{Bidder: "stars1b", Amount: pow2(255, 1)},
	}
	require.NotPanics(t, func() {
		require.Nil(t, BidRatios(bids))
	})
}
