package auction

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// CurationOutcome describes what a curation call did to one submission.
type CurationOutcome uint8

const (
	OutcomeNotFound CurationOutcome = iota
	OutcomeAlreadyVoted
	OutcomeExpired
	OutcomeRecorded
	OutcomeAccepted
	// OutcomeIgnored is a downvote: accepted by the call, never tallied
	OutcomeIgnored
	// OutcomeWindowClosed leaves a submission whose window closed with the
	// bar still met untouched
	OutcomeWindowClosed
)

func (o CurationOutcome) String() string {
	switch o {
	case OutcomeAlreadyVoted:
		return "already_voted"
	case OutcomeExpired:
		return "expired"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeWindowClosed:
		return "window_closed"
	default:
		return "not_found"
	}
}

// MarshalText keeps outcomes readable in JSON responses and events
func (o CurationOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses the names produced by MarshalText
func (o *CurationOutcome) UnmarshalText(b []byte) error {
	for c := OutcomeNotFound; c <= OutcomeWindowClosed; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown curation outcome %q", b)
}

// CurationResult is the outcome for one submission id of a batch
type CurationResult struct {
	SubmissionID uint64          `json:"submission_id"`
	Outcome      CurationOutcome `json:"outcome"`
	Votes        int             `json:"votes"`
	// Auction is set when the submission was accepted
	Auction *Auction `json:"auction,omitempty"`
}

// Curate applies one voter's vote to a batch of submissions. Every id is
// handled on its own; a missing id or a repeated vote never fails the batch.
// The pass bar is computed from holderTokens once per call.
func (s *State) Curate(voter Addr, ids []uint64, vote bool, holderTokens uint64, now time.Time) []CurationResult {
	passCount := s.Config.PassCount(holderTokens)
	results := make([]CurationResult, 0, len(ids))

	for _, id := range ids {
		item, ok := s.Submissions[id]
		if !ok {
			results = append(results, CurationResult{SubmissionID: id, Outcome: OutcomeNotFound})
			continue
		}
		res := CurationResult{SubmissionID: id, Votes: len(item.CurationVotes)}

		if item.HasVoted(voter) {
			res.Outcome = OutcomeAlreadyVoted
			results = append(results, res)
			continue
		}

		if now.After(item.SubmissionEndTime) {
			if len(item.CurationVotes) == 0 || !reached(item, passCount) {
				s.remove(id)
				res.Outcome = OutcomeExpired
			} else {
				// promotion only happens inside the window
				res.Outcome = OutcomeWindowClosed
			}
			results = append(results, res)
			continue
		}

		if !vote {
			res.Outcome = OutcomeIgnored
			results = append(results, res)
			continue
		}

		item.CurationVotes = append(item.CurationVotes, voter)
		res.Votes = len(item.CurationVotes)
		if reached(item, passCount) {
			res.Outcome = OutcomeAccepted
			res.Auction = s.accept(id, item, now)
		} else {
			res.Outcome = OutcomeRecorded
		}
		results = append(results, res)
	}
	return results
}

func reached(item *SubmissionItem, passCount math.Int) bool {
	return math.NewInt(int64(len(item.CurationVotes))).GTE(passCount)
}

// accept removes the submission from the registry and queues its auction
func (s *State) accept(id uint64, item *SubmissionItem, now time.Time) *Auction {
	s.remove(id)
	return s.promote(item, now).clone()
}

func (s *State) remove(id uint64) {
	delete(s.Submissions, id)
	if s.Config.SubmissionTotal > 0 {
		s.Config.SubmissionTotal--
	}
}
