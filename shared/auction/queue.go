package auction

import "time"

// promote moves an accepted submission into the auction queue. It goes live
// immediately when nothing else is live, otherwise it waits on the pending
// stack with its end time unset.
func (s *State) promote(item *SubmissionItem, now time.Time) *Auction {
	a := newAuction(*item)
	if _, live := s.Live.Get(); !live {
		a.AuctionEndTime = now.Add(days(s.Config.AuctionPeriodDays))
		s.Live.install(a)
		return a
	}
	s.Pending = append(s.Pending, a)
	return a
}

// activateNext pops the most recently queued auction and makes it live. With
// an empty stack the live slot stays empty until the next promotion.
func (s *State) activateNext(now time.Time) *Auction {
	if len(s.Pending) == 0 {
		return nil
	}
	last := len(s.Pending) - 1
	next := s.Pending[last]
	s.Pending[last] = nil
	s.Pending = s.Pending[:last]

	next.AuctionEndTime = now.Add(days(s.Config.AuctionPeriodDays))
	s.Live.install(next)
	return next
}
