package auction

import (
	"fmt"
	"sort"
	"time"
)

// LiveStatus tags the live auction slot.
type LiveStatus uint8

const (
	NoLiveAuction LiveStatus = 0
	Live          LiveStatus = 1
)

func (s LiveStatus) String() string {
	switch s {
	case Live:
		return "live"
	default:
		return "none"
	}
}

// LiveSlot holds at most one live auction. Only promote, activateNext and
// Conclude change it.
type LiveSlot struct {
	Status  LiveStatus `json:"status"`
	Auction *Auction   `json:"auction,omitempty"`
}

// Get returns the live auction, if any
func (l *LiveSlot) Get() (*Auction, bool) {
	if l.Status != Live || l.Auction == nil {
		return nil, false
	}
	return l.Auction, true
}

func (l *LiveSlot) install(a *Auction) {
	l.Status = Live
	l.Auction = a
}

func (l *LiveSlot) take() (*Auction, bool) {
	a, ok := l.Get()
	l.Status = NoLiveAuction
	l.Auction = nil
	return a, ok
}

// State is everything the auction house persists between calls
type State struct {
	Config      Config                     `json:"config"`
	Submissions map[uint64]*SubmissionItem `json:"submissions"`
	Live        LiveSlot                   `json:"live"`
	// Pending is used as a stack: the most recently accepted auction goes live next
	Pending []*Auction `json:"pending"`
}

// NewState sets up a fresh auction house and starts the first auction with
// the given artwork right away.
func NewState(cfg Config, first Submission, now time.Time) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ValidateArtworkURI(first.TokenURI); err != nil {
		return nil, err
	}
	st := &State{
		Config:      cfg,
		Submissions: make(map[uint64]*SubmissionItem),
		Pending:     []*Auction{},
	}
	a := newAuction(SubmissionItem{
		Submission:        first,
		CurationVotes:     []Addr{},
		SubmissionEndTime: now.Add(days(cfg.VotePeriodDays)),
	})
	a.AuctionEndTime = now.Add(days(cfg.AuctionPeriodDays))
	st.Live.install(a)
	return st, nil
}

// Clone returns a deep copy. Operations run against a clone and the caller
// keeps it only if the operation succeeds.
func (s *State) Clone() *State {
	c := &State{
		Config:      s.Config,
		Submissions: make(map[uint64]*SubmissionItem, len(s.Submissions)),
		Pending:     make([]*Auction, 0, len(s.Pending)),
	}
	for id, item := range s.Submissions {
		c.Submissions[id] = item.clone()
	}
	if a, ok := s.Live.Get(); ok {
		c.Live.install(a.clone())
	}
	for _, a := range s.Pending {
		c.Pending = append(c.Pending, a.clone())
	}
	return c
}

// SubmissionEntry pairs a pending submission with its id
type SubmissionEntry struct {
	ID   uint64         `json:"id"`
	Item SubmissionItem `json:"item"`
}

const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 30
)

// ListSubmissions pages through pending submissions in id order, starting
// after startAfter when it is set.
func (s *State) ListSubmissions(startAfter *uint64, limit uint32) []SubmissionEntry {
	n := int(limit)
	if n == 0 {
		n = DefaultQueryLimit
	}
	if n > MaxQueryLimit {
		n = MaxQueryLimit
	}

	ids := make([]uint64, 0, len(s.Submissions))
	for id := range s.Submissions {
		if startAfter != nil && id <= *startAfter {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > n {
		ids = ids[:n]
	}

	out := make([]SubmissionEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, SubmissionEntry{ID: id, Item: *s.Submissions[id].clone()})
	}
	return out
}
