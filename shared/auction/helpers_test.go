package auction

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	owner      Addr = "stars1owner"
	collection Addr = "stars1collection"
	bidDenom        = "ubid"
	memeDenom       = "umeme"
)

func testConfig() Config {
	cfg := DefaultConfig(owner, collection, bidDenom)
	cfg.RewardDenom = memeDenom
	cfg.RewardAmount = math.NewInt(100)
	cfg.MintCost = math.NewInt(50)
	return cfg
}

func ubid(n int64) []Coin {
	return []Coin{NewCoin(bidDenom, math.NewInt(n))}
}

// genesisState starts with the first artwork live until t0 + 1 day
func genesisState(t *testing.T) *State {
	t.Helper()
	st, err := NewState(testConfig(), Submission{
		Submitter:        "stars1artist",
		ProceedRecipient: "stars1artist",
		TokenURI:         "ipfs://genesis",
	}, t0)
	require.NoError(t, err)
	return st
}

// emptyState has no live auction and nothing queued
func emptyState() *State {
	return &State{
		Config:      testConfig(),
		Submissions: map[uint64]*SubmissionItem{},
		Pending:     []*Auction{},
	}
}

func curatedItem(uri string, curators ...Addr) *SubmissionItem {
	return &SubmissionItem{
		Submission: Submission{
			Submitter:        "stars1artist",
			ProceedRecipient: "stars1proceeds",
			TokenURI:         uri,
		},
		CurationVotes:     curators,
		SubmissionEndTime: t0,
	}
}

type fakeHolders struct {
	tokens  uint64
	holders map[Addr]bool
	err     error
}

func (f *fakeHolders) HolderTokenCount(context.Context) (uint64, error) {
	return f.tokens, f.err
}

func (f *fakeHolders) OwnsAny(_ context.Context, addr Addr) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.holders[addr], nil
}

type fakeTreasury struct {
	balance math.Int
	err     error
}

func (f fakeTreasury) Balance(context.Context, string) (math.Int, error) {
	return f.balance, f.err
}

var errUnavailable = errors.New("unavailable")

func requireAmount(t *testing.T, want int64, got math.Int) {
	t.Helper()
	require.Equal(t, math.NewInt(want).String(), got.String())
}

// pow2 returns 2^n, plus delta
func pow2(n uint, delta int64) math.Int {
	v := new(big.Int).Lsh(big.NewInt(1), n)
	return math.NewIntFromBigInt(v.Add(v, big.NewInt(delta)))
}
