package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

// PlaceBid handles the bid workflow:
// 1. Validate the bid against the live auction inside one transaction
// 2. Commit the new highest bid together with the refund of the previous one
// 3. Publish the bid event for realtime broadcast and archival
func (s *AuctionService) PlaceBid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	var (
		receipt auction.BidReceipt
		live    auction.Auction
		denom   string
	)
	err := s.update(ctx, "bid", func(st *auction.State) (*auction.State, error) {
		next, r, err := s.engine.Bid(ctx, st, auction.Addr(req.Bidder), req.Funds)
		if err != nil {
			return nil, err
		}
		receipt = r
		denom = next.Config.BidDenom
		if a, ok := next.Live.Get(); ok {
			live = *a
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	event := &models.BidEvent{
		EventID:     uuid.New().String(),
		AuctionURI:  live.SubmissionInfo.Submission.TokenURI,
		Bidder:      receipt.Bid.Bidder.String(),
		Amount:      receipt.Bid.Amount.String(),
		Denom:       denom,
		PreviousBid: receipt.Previous.Amount.String(),
		Refund:      receipt.Refund,
		EndTime:     live.AuctionEndTime,
		Timestamp:   time.Now().UTC(),
	}
	s.publish(models.KindBid, event.EventID, event.Timestamp, event)

	log.WithFields(log.Fields{
		"bidder": req.Bidder,
		"amount": event.Amount,
	}).Info("Bid placed")

	return &models.BidResponse{
		Success:    true,
		Message:    "Bid placed successfully!",
		HighestBid: receipt.Bid,
		Refund:     receipt.Refund,
		EventID:    event.EventID,
	}, nil
}

// Conclude settles the live auction once its end time has passed and
// activates the next pending auction
func (s *AuctionService) Conclude(ctx context.Context) (*models.SettlementEvent, error) {
	var settlement *auction.Settlement
	err := s.update(ctx, "conclude", func(st *auction.State) (*auction.State, error) {
		next, res, err := s.engine.Conclude(ctx, st)
		settlement = res
		return next, err
	})
	if err != nil {
		return nil, err
	}

	event := settlementEvent(settlement)
	s.publish(models.KindSettlement, event.EventID, event.Timestamp, event)

	entry := log.WithFields(log.Fields{
		"token_uri":    event.TokenURI,
		"instructions": len(event.Instructions),
	})
	if settlement.TokenID != nil {
		entry = entry.WithFields(log.Fields{"token_id": *settlement.TokenID, "winner": event.Winner})
	}
	entry.Info("Auction concluded")

	return event, nil
}

func settlementEvent(st *auction.Settlement) *models.SettlementEvent {
	a := st.Auction
	event := &models.SettlementEvent{
		EventID:            uuid.New().String(),
		TokenID:            st.TokenID,
		TokenURI:           a.SubmissionInfo.Submission.TokenURI,
		WinningBid:         a.HighestBid.Amount.String(),
		DistributionAmount: st.DistributionAmount.String(),
		Instructions:       st.Instructions,
		Timestamp:          time.Now().UTC(),
	}
	if a.HasBids() {
		event.Winner = a.HighestBid.Bidder.String()
	}
	if st.Next != nil {
		event.NextTokenURI = st.Next.SubmissionInfo.Submission.TokenURI
	}
	return event
}
