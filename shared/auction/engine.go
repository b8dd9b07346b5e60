package auction

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Engine runs auction operations against a State. Each call works on a clone
// and hands back the new State only on success, so a failed call leaves the
// input untouched.
type Engine struct {
	holders  HolderOracle
	treasury BalanceQuerier
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. treasury may be nil when no reward asset is used.
func NewEngine(holders HolderOracle, treasury BalanceQuerier, opts ...Option) *Engine {
	e := &Engine{
		holders:  holders,
		treasury: treasury,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// Submit validates the artwork uri, checks whether the submitter is a holder
// and registers the submission.
func (e *Engine) Submit(ctx context.Context, st *State, submitter, recipient Addr, uri string, funds []Coin) (*State, SubmitResult, error) {
	if err := ValidateArtworkURI(uri); err != nil {
		return nil, SubmitResult{}, err
	}

	isHolder, err := e.holders.OwnsAny(ctx, submitter)
	if err != nil {
		// an unreachable collection is treated like holding nothing
		log.WithError(err).WithField("submitter", submitter).Warn("Holder check failed, charging submission cost")
		isHolder = false
	}

	next := st.Clone()
	res, err := next.Submit(submitter, recipient, uri, funds, isHolder, e.now())
	if err != nil {
		return nil, SubmitResult{}, err
	}
	return next, res, nil
}

// Curate checks that voter is a holder, reads the current holder token count
// and applies the votes.
func (e *Engine) Curate(ctx context.Context, st *State, voter Addr, ids []uint64, vote bool) (*State, []CurationResult, error) {
	owns, err := e.holders.OwnsAny(ctx, voter)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrHolderCheckFailed, err)
	}
	if !owns {
		return nil, nil, ErrHolderCheckFailed
	}

	tokens, err := e.holders.HolderTokenCount(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query holder token count: %w", err)
	}

	next := st.Clone()
	results := next.Curate(voter, ids, vote, tokens, e.now())
	return next, results, nil
}

// Bid places a bid on the live auction
func (e *Engine) Bid(_ context.Context, st *State, bidder Addr, funds []Coin) (*State, BidReceipt, error) {
	next := st.Clone()
	receipt, err := next.PlaceBid(bidder, funds, e.now())
	if err != nil {
		return nil, BidReceipt{}, err
	}
	return next, receipt, nil
}

// Conclude settles the live auction
func (e *Engine) Conclude(ctx context.Context, st *State) (*State, *Settlement, error) {
	next := st.Clone()
	settlement, err := next.Conclude(ctx, e.treasury, e.now())
	if err != nil {
		return nil, nil, err
	}
	return next, settlement, nil
}
