package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 20 holder tokens at 11% need 2 votes
const holderTokens = 20

func submitOne(t *testing.T, st *State, uri string) uint64 {
	t.Helper()
	res, err := st.Submit("stars1artist", "stars1proceeds", uri, nil, true, t0)
	require.NoError(t, err)
	return res.SubmissionID
}

func TestPassCountFloors(t *testing.T) {
	cfg := testConfig()
	requireAmount(t, 2, cfg.PassCount(20))
	requireAmount(t, 0, cfg.PassCount(9))
	requireAmount(t, 11, cfg.PassCount(100))
}

func TestCurateAcceptsAtThreshold(t *testing.T) {
	st := genesisState(t)
	id := submitOne(t, st, "ipfs://art")
	now := t0.Add(time.Hour)

	res := st.Curate("stars1alice", []uint64{id}, true, holderTokens, now)
	require.Equal(t, OutcomeRecorded, res[0].Outcome)
	require.Equal(t, 1, res[0].Votes)

	res = st.Curate("stars1alice", []uint64{id}, true, holderTokens, now)
	require.Equal(t, OutcomeAlreadyVoted, res[0].Outcome)
	require.Len(t, st.Submissions[id].CurationVotes, 1)

	res = st.Curate("stars1bob", []uint64{id}, true, holderTokens, now)
	require.Equal(t, OutcomeAccepted, res[0].Outcome)
	require.NotNil(t, res[0].Auction)

	// promotion is a move out of the registry
	_, ok := st.Submissions[id]
	require.False(t, ok)
	require.Equal(t, uint64(0), st.Config.SubmissionTotal)

	// genesis auction is live, so the accepted one waits
	require.Len(t, st.Pending, 1)
	queued := st.Pending[0]
	require.True(t, queued.AuctionEndTime.IsZero())
	require.Equal(t, "ipfs://art", queued.SubmissionInfo.Submission.TokenURI)
	require.Equal(t, []Addr{"stars1alice", "stars1bob"}, queued.Curators())
	require.False(t, queued.HasBids())

	res = st.Curate("stars1carol", []uint64{id}, true, holderTokens, now)
	require.Equal(t, OutcomeNotFound, res[0].Outcome)
}

func TestCuratePromotesStraightToLive(t *testing.T) {
	st := emptyState()
	id := submitOne(t, st, "ipfs://art")

	res := st.Curate("stars1alice", []uint64{id}, true, 5, t0)
	require.Equal(t, OutcomeAccepted, res[0].Outcome)

	live, ok := st.Live.Get()
	require.True(t, ok)
	require.Equal(t, t0.Add(24*time.Hour), live.AuctionEndTime)
	require.Empty(t, st.Pending)
}

func TestCurateExpiresAfterWindow(t *testing.T) {
	st := genesisState(t)
	id := submitOne(t, st, "ipfs://art")
	st.Curate("stars1alice", []uint64{id}, true, holderTokens, t0)
	total := st.Config.SubmissionTotal

	late := t0.Add(8 * 24 * time.Hour)
	res := st.Curate("stars1bob", []uint64{id}, true, holderTokens, late)
	require.Equal(t, OutcomeExpired, res[0].Outcome)
	require.Equal(t, total-1, st.Config.SubmissionTotal)
	require.Empty(t, st.Submissions)
	require.Empty(t, st.Pending)

	// a downvote also triggers expiry once the window closed
	id = submitOne(t, st, "ipfs://other")
	res = st.Curate("stars1bob", []uint64{id}, false, holderTokens, late)
	require.Equal(t, OutcomeExpired, res[0].Outcome)
}

func TestCurateNeverPromotesAfterWindow(t *testing.T) {
	st := genesisState(t)
	id := submitOne(t, st, "ipfs://art")
	st.Curate("stars1alice", []uint64{id}, true, holderTokens, t0)
	total := st.Config.SubmissionTotal

	// holder supply shrank to 10 tokens: one vote meets the bar, but the
	// window is closed
	late := t0.Add(8 * 24 * time.Hour)
	before := st.Clone()
	res := st.Curate("stars1bob", []uint64{id}, true, 10, late)
	require.Equal(t, OutcomeWindowClosed, res[0].Outcome)
	require.Nil(t, res[0].Auction)
	require.Equal(t, before, st)
	require.Equal(t, total, st.Config.SubmissionTotal)
	require.Empty(t, st.Pending)

	// once the bar rises above the votes again it expires
	res = st.Curate("stars1bob", []uint64{id}, true, holderTokens, late)
	require.Equal(t, OutcomeExpired, res[0].Outcome)
	require.Empty(t, st.Submissions)
}

func TestCurateDownvoteIsNoop(t *testing.T) {
	st := genesisState(t)
	id := submitOne(t, st, "ipfs://art")

	res := st.Curate("stars1alice", []uint64{id}, false, holderTokens, t0)
	require.Equal(t, OutcomeIgnored, res[0].Outcome)
	require.Empty(t, st.Submissions[id].CurationVotes)

	// the downvoter can still upvote later
	res = st.Curate("stars1alice", []uint64{id}, true, holderTokens, t0)
	require.Equal(t, OutcomeRecorded, res[0].Outcome)
}

func TestCurateBatchIsBestEffort(t *testing.T) {
	st := genesisState(t)
	a := submitOne(t, st, "ipfs://a")
	b := submitOne(t, st, "ipfs://b")
	st.Curate("stars1alice", []uint64{a}, true, holderTokens, t0)

	res := st.Curate("stars1alice", []uint64{a, 99, b}, true, holderTokens, t0)
	require.Len(t, res, 3)
	require.Equal(t, OutcomeAlreadyVoted, res[0].Outcome)
	require.Equal(t, OutcomeNotFound, res[1].Outcome)
	require.Equal(t, uint64(99), res[1].SubmissionID)
	require.Equal(t, OutcomeRecorded, res[2].Outcome)
}

func TestCurationOutcomeText(t *testing.T) {
	b, err := OutcomeAccepted.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "accepted", string(b))
	require.Equal(t, "not_found", OutcomeNotFound.String())
}
