package auction

import (
	"fmt"
	"net/url"
	"time"

	"cosmossdk.io/math"
)

// ValidateArtworkURI accepts absolute URIs such as ipfs://... or https://...
func ValidateArtworkURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "" && u.Path == "") {
		return fmt.Errorf("%w: %q", ErrInvalidArtworkURI, uri)
	}
	return nil
}

// SubmitResult is what a successful submission produces
type SubmitResult struct {
	SubmissionID uint64         `json:"submission_id"`
	Item         SubmissionItem `json:"item"`
	Instructions []Instruction  `json:"instructions"`
}

// Submit registers a new artwork for curation. Non-holders pay the submission
// cost in the bid denom, which is forwarded to the owner.
func (s *State) Submit(submitter, recipient Addr, uri string, funds []Coin, isHolder bool, now time.Time) (SubmitResult, error) {
	cfg := &s.Config
	if cfg.SubmissionTotal >= cfg.SubmissionLimit {
		return SubmitResult{}, fmt.Errorf("%w: %d pending", ErrExceededSubmissionLimit, cfg.SubmissionTotal)
	}

	var msgs []Instruction
	if !isHolder {
		if !hasCoins(funds, cfg.BidDenom, cfg.SubmissionCost) {
			return SubmitResult{}, fmt.Errorf("%w: need %s%s", ErrInsufficientFunds, cfg.SubmissionCost, cfg.BidDenom)
		}
		msgs = append(msgs, TransferNative(cfg.Owner, NewCoin(cfg.BidDenom, cfg.SubmissionCost), ReasonSubmissionFee))
	}

	id := cfg.Sequence.NextSubmissionID()
	cfg.SubmissionTotal++

	item := &SubmissionItem{
		Submission: Submission{
			Submitter:        submitter,
			ProceedRecipient: recipient,
			TokenURI:         uri,
		},
		CurationVotes:     []Addr{},
		SubmissionEndTime: now.Add(days(cfg.VotePeriodDays)),
	}
	if s.Submissions == nil {
		s.Submissions = make(map[uint64]*SubmissionItem)
	}
	s.Submissions[id] = item

	return SubmitResult{SubmissionID: id, Item: *item.clone(), Instructions: msgs}, nil
}

// hasCoins reports whether funds hold at least amount of denom. Summing stops
// as soon as amount is covered.
func hasCoins(funds []Coin, denom string, amount math.Int) bool {
	total := math.ZeroInt()
	for _, c := range funds {
		if c.Denom != denom || c.Validate() != nil {
			continue
		}
		next, err := total.SafeAdd(c.Amount)
		if err != nil {
			// more than fits in an Int is more than any cost
			return true
		}
		total = next
		if total.GTE(amount) {
			return true
		}
	}
	return total.GTE(amount)
}
