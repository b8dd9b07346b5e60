package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

func setupClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func genesis(t *testing.T) *auction.State {
	t.Helper()
	cfg := auction.DefaultConfig("stars1owner", "stars1collection", "ubid")
	st, err := auction.NewState(cfg, auction.Submission{TokenURI: "ipfs://genesis"}, time.Now())
	require.NoError(t, err)
	return st
}

func TestInitStateOnlyOnce(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	_, err := c.LoadState(ctx)
	require.ErrorIs(t, err, ErrStateNotInitialized)

	ok, err := c.InitState(ctx, genesis(t))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.InitState(ctx, genesis(t))
	require.NoError(t, err)
	require.False(t, ok)

	st, err := c.LoadState(ctx)
	require.NoError(t, err)
	live, found := st.Live.Get()
	require.True(t, found)
	require.Equal(t, "ipfs://genesis", live.SubmissionInfo.Submission.TokenURI)
	require.NotNil(t, st.Submissions)
}

func TestUpdateCommitsAndRollsBack(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	_, err := c.InitState(ctx, genesis(t))
	require.NoError(t, err)

	err = c.Update(ctx, func(st *auction.State) (*auction.State, error) {
		next := st.Clone()
		_, err := next.Submit("stars1a", "stars1a", "ipfs://one", nil, true, time.Now())
		return next, err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.Update(ctx, func(st *auction.State) (*auction.State, error) {
		next := st.Clone()
		_, _ = next.Submit("stars1a", "stars1a", "ipfs://two", nil, true, time.Now())
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	st, err := c.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Submissions, 1)
	require.Equal(t, uint64(1), st.Config.SubmissionTotal)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	_, err := c.InitState(ctx, genesis(t))
	require.NoError(t, err)

	calls := 0
	err = c.Update(ctx, func(st *auction.State) (*auction.State, error) {
		calls++
		if calls == 1 {
			// a concurrent writer lands between WATCH and EXEC
			other := st.Clone()
			_, _ = other.Submit("stars1b", "stars1b", "ipfs://other", nil, true, time.Now())
			data, err := json.Marshal(other)
			require.NoError(t, err)
			require.NoError(t, c.client.Set(ctx, stateKey, data, 0).Err())
		}
		next := st.Clone()
		_, err := next.Submit("stars1a", "stars1a", "ipfs://mine", nil, true, time.Now())
		return next, err
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	st, err := c.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Submissions, 2)
}

func TestTreasuryBalance(t *testing.T) {
	c, mr := setupClient(t)
	ctx := context.Background()

	_, err := c.Balance(ctx, "umeme")
	require.Error(t, err)

	require.NoError(t, c.SetBalance(ctx, "umeme", math.NewInt(1234)))
	bal, err := c.Balance(ctx, "umeme")
	require.NoError(t, err)
	require.Equal(t, "1234", bal.String())

	mr.Set("treasury:umeme:balance", "lots")
	_, err = c.Balance(ctx, "umeme")
	require.Error(t, err)
}

func TestPublishEvent(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	sub := c.client.Subscribe(ctx, "auction_events:bid")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	env, err := models.NewEnvelope(models.KindBid, "evt-1", time.Now(), models.BidEvent{Bidder: "stars1a", Amount: "5"})
	require.NoError(t, err)
	require.NoError(t, c.PublishEvent(ctx, env))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got models.Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Equal(t, "evt-1", got.EventID)
	require.Equal(t, models.KindBid, got.Kind)
}
