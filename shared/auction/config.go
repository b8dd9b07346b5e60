package auction

import (
	"fmt"

	"cosmossdk.io/math"
)

// Defaults of the original deployment
const (
	DefaultVotePeriodDays    = 7
	DefaultAuctionPeriodDays = 1
	DefaultSubmissionLimit   = 333
	DefaultMintDenom         = "ustars"
)

var (
	DefaultCurationThreshold = math.LegacyNewDecWithPrec(11, 2)
	DefaultSubmissionCost    = math.NewInt(10_000_000)
	DefaultRewardAmount      = math.NewInt(100_000_000)
)

// Sequence hands out submission and token ids. It lives inside Config so the
// counters persist with the rest of the state.
type Sequence struct {
	CurrentSubmissionID uint64 `json:"current_submission_id"`
	CurrentTokenID      uint64 `json:"current_token_id"`
}

// NextSubmissionID returns the id to use for a new submission and advances the counter
func (s *Sequence) NextSubmissionID() uint64 {
	id := s.CurrentSubmissionID
	s.CurrentSubmissionID++
	return id
}

// NextTokenID returns the id to mint next and advances the counter
func (s *Sequence) NextTokenID() uint64 {
	id := s.CurrentTokenID
	s.CurrentTokenID++
	return id
}

// Config holds the process-wide auction parameters
type Config struct {
	Owner      Addr   `json:"owner"`
	Collection Addr   `json:"collection"`
	BidDenom   string `json:"bid_denom"`

	// RewardDenom is empty when no secondary reward asset is distributed
	RewardDenom  string   `json:"reward_denom,omitempty"`
	RewardAmount math.Int `json:"reward_amount"`

	MintCost  math.Int `json:"mint_cost"`
	MintDenom string   `json:"mint_denom"`

	SubmissionCost    math.Int       `json:"submission_cost"`
	SubmissionLimit   uint64         `json:"submission_limit"`
	SubmissionTotal   uint64         `json:"submission_total"`
	VotePeriodDays    uint64         `json:"submission_vote_period"`
	CurationThreshold math.LegacyDec `json:"curation_threshold"`
	AuctionPeriodDays uint64         `json:"auction_period"`

	Sequence Sequence `json:"sequence"`
}

// DefaultConfig returns a config with the deployment defaults
func DefaultConfig(owner, collection Addr, bidDenom string) Config {
	return Config{
		Owner:             owner,
		Collection:        collection,
		BidDenom:          bidDenom,
		RewardAmount:      DefaultRewardAmount,
		MintCost:          math.ZeroInt(),
		MintDenom:         DefaultMintDenom,
		SubmissionCost:    DefaultSubmissionCost,
		SubmissionLimit:   DefaultSubmissionLimit,
		VotePeriodDays:    DefaultVotePeriodDays,
		CurationThreshold: DefaultCurationThreshold,
		AuctionPeriodDays: DefaultAuctionPeriodDays,
	}
}

// HasReward reports whether a secondary reward asset is configured
func (c *Config) HasReward() bool {
	return c.RewardDenom != ""
}

// Validate checks the config before it is installed
func (c *Config) Validate() error {
	if c.Owner.Empty() {
		return fmt.Errorf("owner is required")
	}
	if c.BidDenom == "" {
		return fmt.Errorf("bid denom is required")
	}
	for name, v := range map[string]math.Int{
		"reward amount":   c.RewardAmount,
		"mint cost":       c.MintCost,
		"submission cost": c.SubmissionCost,
	} {
		if v.IsNil() || v.IsNegative() {
			return fmt.Errorf("%s must be a non-negative integer", name)
		}
	}
	if c.CurationThreshold.IsNil() || c.CurationThreshold.IsNegative() || c.CurationThreshold.GT(math.LegacyOneDec()) {
		return fmt.Errorf("curation threshold must be within [0, 1], got %s", c.CurationThreshold)
	}
	if c.AuctionPeriodDays == 0 {
		return fmt.Errorf("auction period must be at least one day")
	}
	return nil
}

// PassCount is the number of curation votes needed for acceptance given the
// current number of holder tokens. Fractions are floored.
func (c *Config) PassCount(holderTokens uint64) math.Int {
	return c.CurationThreshold.MulInt(math.NewIntFromUint64(holderTokens)).TruncateInt()
}
