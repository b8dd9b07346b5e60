package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

type fakeMsg struct {
	data   []byte
	result string
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "auction.events.test" }
func (m *fakeMsg) Ack() error      { m.result = "ack"; return nil }
func (m *fakeMsg) Nak() error      { m.result = "nak"; return nil }
func (m *fakeMsg) Term() error     { m.result = "term"; return nil }

type fakeStore struct {
	err         error
	bids        []*models.BidEvent
	settlements []*models.SettlementEvent
	kinds       []string
}

func (s *fakeStore) ArchiveSubmission(_ context.Context, env *models.Envelope, _ *models.SubmissionEvent) error {
	s.kinds = append(s.kinds, env.Kind)
	return s.err
}

func (s *fakeStore) ArchiveCuration(_ context.Context, env *models.Envelope, _ *models.CurationEvent) error {
	s.kinds = append(s.kinds, env.Kind)
	return s.err
}

func (s *fakeStore) ArchiveBid(_ context.Context, env *models.Envelope, event *models.BidEvent) error {
	s.kinds = append(s.kinds, env.Kind)
	s.bids = append(s.bids, event)
	return s.err
}

func (s *fakeStore) ArchiveSettlement(_ context.Context, env *models.Envelope, event *models.SettlementEvent) error {
	s.kinds = append(s.kinds, env.Kind)
	s.settlements = append(s.settlements, event)
	return s.err
}

func encode(t *testing.T, kind string, payload any) []byte {
	t.Helper()
	env, err := models.NewEnvelope(kind, "evt-"+kind, time.Now(), payload)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestHandleMessageDispatchesByKind(t *testing.T) {
	store := &fakeStore{}
	c := &JetStreamConsumer{store: store}
	ctx := context.Background()

	tokenID := uint64(1)
	msgs := []*fakeMsg{
		{data: encode(t, models.KindSubmission, models.SubmissionEvent{SubmissionID: 1})},
		{data: encode(t, models.KindCuration, models.CurationEvent{Results: []auction.CurationResult{{SubmissionID: 1, Outcome: auction.OutcomeAccepted}}})},
		{data: encode(t, models.KindBid, models.BidEvent{Bidder: "stars1a", Amount: "5"})},
		{data: encode(t, models.KindSettlement, models.SettlementEvent{
			TokenID: &tokenID,
			Instructions: []auction.Instruction{
				auction.Mint("stars1collection", "stars1a", 1, "ipfs://art", auction.NewCoin("ustars", math.NewInt(0))),
			},
		})},
	}
	for _, m := range msgs {
		c.handleMessage(ctx, m)
		require.Equal(t, "ack", m.result)
	}

	require.Equal(t, []string{models.KindSubmission, models.KindCuration, models.KindBid, models.KindSettlement}, store.kinds)
	require.Equal(t, "stars1a", store.bids[0].Bidder)
	require.Len(t, store.settlements[0].Instructions, 1)
	require.Equal(t, auction.InstructionMint, store.settlements[0].Instructions[0].Kind)
}

func TestHandleMessageTerminatesMalformed(t *testing.T) {
	c := &JetStreamConsumer{store: &fakeStore{}}
	ctx := context.Background()

	garbage := &fakeMsg{data: []byte("{")}
	c.handleMessage(ctx, garbage)
	require.Equal(t, "term", garbage.result)

	unknown := &fakeMsg{data: encode(t, "auction_created", map[string]string{})}
	c.handleMessage(ctx, unknown)
	require.Equal(t, "term", unknown.result)

	badPayload := &fakeMsg{data: []byte(`{"kind":"bid","event_id":"e","payload":"not an object"}`)}
	c.handleMessage(ctx, badPayload)
	require.Equal(t, "term", badPayload.result)
}

func TestHandleMessageNaksStorageFailures(t *testing.T) {
	c := &JetStreamConsumer{store: &fakeStore{err: errors.New("connection refused")}}

	msg := &fakeMsg{data: encode(t, models.KindBid, models.BidEvent{Bidder: "stars1a"})}
	c.handleMessage(context.Background(), msg)
	require.Equal(t, "nak", msg.result)
}
