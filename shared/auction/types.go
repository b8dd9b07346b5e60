package auction

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// SecondsPerDay converts the day-based periods in Config into durations.
const SecondsPerDay = 86400

// Addr is an account address on the host chain
type Addr string

// String returns the address as plain text
func (a Addr) String() string { return string(a) }

// Empty reports whether the address is unset (used by the zero-bid sentinel)
func (a Addr) Empty() bool { return a == "" }

// Coin is an amount of a single denom
type Coin struct {
	Denom  string   `json:"denom"`
	Amount math.Int `json:"amount"`
}

// NewCoin builds a coin from a denom and amount
func NewCoin(denom string, amount math.Int) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// Validate rejects coins without a denom or with a missing or negative amount
func (c Coin) Validate() error {
	if c.Denom == "" {
		return fmt.Errorf("coin denom is empty")
	}
	if c.Amount.IsNil() {
		return fmt.Errorf("coin %s has no amount", c.Denom)
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("coin %s has negative amount %s", c.Denom, c.Amount)
	}
	return nil
}

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", c.Amount, c.Denom)
}

// Submission is an artwork proposed for the collection
type Submission struct {
	Submitter        Addr   `json:"submitter"`
	ProceedRecipient Addr   `json:"proceed_recipient"`
	TokenURI         string `json:"token_uri"`
}

// SubmissionItem is a submission awaiting curation
type SubmissionItem struct {
	Submission        Submission `json:"submission"`
	CurationVotes     []Addr     `json:"curation_votes"`
	SubmissionEndTime time.Time  `json:"submission_end_time"`
}

// HasVoted reports whether voter already curated this submission
func (s *SubmissionItem) HasVoted(voter Addr) bool {
	for _, v := range s.CurationVotes {
		if v == voter {
			return true
		}
	}
	return false
}

func (s *SubmissionItem) clone() *SubmissionItem {
	c := *s
	c.CurationVotes = append(make([]Addr, 0, len(s.CurationVotes)), s.CurationVotes...)
	return &c
}

// Bid is a single recorded bid
type Bid struct {
	Bidder Addr     `json:"bidder"`
	Amount math.Int `json:"amount"`
}

// zeroBid is the highest bid of an auction nobody has bid on yet
func zeroBid() Bid {
	return Bid{Amount: math.ZeroInt()}
}

// Auction is an accepted submission together with its bid history
type Auction struct {
	SubmissionInfo SubmissionItem `json:"submission_info"`
	Bids           []Bid          `json:"bids"`
	HighestBid     Bid            `json:"highest_bid"`
	// AuctionEndTime stays zero while the auction is pending
	AuctionEndTime time.Time `json:"auction_end_time"`
}

func newAuction(item SubmissionItem) *Auction {
	return &Auction{
		SubmissionInfo: *item.clone(),
		Bids:           []Bid{},
		HighestBid:     zeroBid(),
	}
}

// HasBids reports whether at least one real bid was recorded
func (a *Auction) HasBids() bool {
	return len(a.Bids) > 0 && a.HighestBid.Amount.IsPositive()
}

// Curators returns the addresses that voted this artwork into the queue
func (a *Auction) Curators() []Addr {
	return a.SubmissionInfo.CurationVotes
}

func (a *Auction) clone() *Auction {
	c := *a
	c.SubmissionInfo = *a.SubmissionInfo.clone()
	c.Bids = append([]Bid{}, a.Bids...)
	return &c
}

func days(n uint64) time.Duration {
	return time.Duration(n) * SecondsPerDay * time.Second
}
