package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/api-gateway/internal/metrics"
	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/config"
	"github.com/The-Membrane/brane-auction/shared/models"
)

const (
	publishTimeout  = 5 * time.Second
	archiveAttempts = 3
)

// StateStore persists the auction state and fans events out to realtime
// subscribers. Implemented by the Redis client.
type StateStore interface {
	InitState(ctx context.Context, st *auction.State) (bool, error)
	LoadState(ctx context.Context) (*auction.State, error)
	Update(ctx context.Context, fn func(*auction.State) (*auction.State, error)) error
	PublishEvent(ctx context.Context, env *models.Envelope) error
}

// Archiver hands events to durable storage
type Archiver interface {
	Archive(ctx context.Context, env *models.Envelope) error
}

// AuctionService runs auction operations against the shared state. Every write
// is one optimistic transaction on the store; events are published after the
// commit and never fail the operation.
type AuctionService struct {
	store    StateStore
	engine   *auction.Engine
	archiver Archiver

	// retryBackoff is the wait before the second archive attempt; it doubles after that
	retryBackoff time.Duration
	inflight     sync.WaitGroup
}

// NewAuctionService creates a new auction service. archiver may be nil.
func NewAuctionService(store StateStore, engine *auction.Engine, archiver Archiver) *AuctionService {
	return &AuctionService{
		store:    store,
		engine:   engine,
		archiver:     archiver,
		retryBackoff: 500 * time.Millisecond,
	}
}

// Init writes the genesis state unless one already exists
func (s *AuctionService) Init(ctx context.Context, params *config.AuctionParams) error {
	st, err := auction.NewState(params.Config, params.First, s.engine.Now())
	if err != nil {
		return fmt.Errorf("failed to build genesis state: %w", err)
	}
	created, err := s.store.InitState(ctx, st)
	if err != nil {
		return err
	}
	if created {
		log.WithField("token_uri", params.First.TokenURI).Info("Genesis auction is live")
	} else {
		log.Info("Existing auction state found")
	}
	return nil
}

// Submit registers an artwork for curation
func (s *AuctionService) Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResponse, error) {
	var res auction.SubmitResult
	err := s.update(ctx, "submit", func(st *auction.State) (*auction.State, error) {
		next, r, err := s.engine.Submit(ctx, st, auction.Addr(req.Submitter), auction.Addr(req.ProceedRecipient), req.TokenURI, req.Funds)
		res = r
		return next, err
	})
	if err != nil {
		return nil, err
	}

	event := &models.SubmissionEvent{
		EventID:      uuid.New().String(),
		SubmissionID: res.SubmissionID,
		Submitter:    res.Item.Submission.Submitter.String(),
		TokenURI:     res.Item.Submission.TokenURI,
		EndTime:      res.Item.SubmissionEndTime,
		Instructions: res.Instructions,
		Timestamp:    time.Now().UTC(),
	}
	s.publish(models.KindSubmission, event.EventID, event.Timestamp, event)

	log.WithFields(log.Fields{
		"submission_id": res.SubmissionID,
		"submitter":     req.Submitter,
	}).Info("Submission registered")

	return &models.SubmitResponse{
		SubmissionID: res.SubmissionID,
		Item:         res.Item,
		Instructions: res.Instructions,
		EventID:      event.EventID,
	}, nil
}

// Curate applies a holder's vote to a batch of submissions
func (s *AuctionService) Curate(ctx context.Context, req *models.CurateRequest) (*models.CurateResponse, error) {
	var results []auction.CurationResult
	err := s.update(ctx, "curate", func(st *auction.State) (*auction.State, error) {
		next, r, err := s.engine.Curate(ctx, st, auction.Addr(req.Voter), req.SubmissionIDs, req.Vote)
		results = r
		return next, err
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		metrics.CurationOutcomes.WithLabelValues(r.Outcome.String()).Inc()
	}

	event := &models.CurationEvent{
		EventID:   uuid.New().String(),
		Voter:     req.Voter,
		Vote:      req.Vote,
		Results:   results,
		Timestamp: time.Now().UTC(),
	}
	s.publish(models.KindCuration, event.EventID, event.Timestamp, event)

	return &models.CurateResponse{Results: results, EventID: event.EventID}, nil
}

// Config returns the current configuration
func (s *AuctionService) Config(ctx context.Context) (*auction.Config, error) {
	st, err := s.store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	return &st.Config, nil
}

// Submissions returns one page of the submissions still in curation
func (s *AuctionService) Submissions(ctx context.Context, startAfter *uint64, limit uint32) ([]auction.SubmissionEntry, error) {
	st, err := s.store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	return st.ListSubmissions(startAfter, limit), nil
}

// LiveAuction returns the auction currently taking bids
func (s *AuctionService) LiveAuction(ctx context.Context) (*auction.Auction, error) {
	st, err := s.store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	live, ok := st.Live.Get()
	if !ok {
		return nil, fmt.Errorf("live auction: %w", auction.ErrNotFound)
	}
	return live, nil
}

// PendingAuctions returns the accepted auctions waiting to go live, next first
func (s *AuctionService) PendingAuctions(ctx context.Context) ([]*auction.Auction, error) {
	st, err := s.store.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*auction.Auction, 0, len(st.Pending))
	for i := len(st.Pending) - 1; i >= 0; i-- {
		pending = append(pending, st.Pending[i])
	}
	return pending, nil
}

// Wait blocks until every in-flight event publish has finished
func (s *AuctionService) Wait() {
	s.inflight.Wait()
}

// update runs fn as one store transaction and records metrics. fn may be
// retried, so it must only capture results, never publish.
func (s *AuctionService) update(ctx context.Context, op string, fn func(*auction.State) (*auction.State, error)) error {
	timer := prometheus.NewTimer(metrics.OperationDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	var committed *auction.State
	err := s.store.Update(ctx, func(st *auction.State) (*auction.State, error) {
		next, err := fn(st)
		committed = next
		return next, err
	})
	metrics.Operations.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		log.WithError(err).WithField("operation", op).Debug("Operation rejected")
		return err
	}

	metrics.PendingAuctions.Set(float64(len(committed.Pending)))
	metrics.OpenSubmissions.Set(float64(len(committed.Submissions)))
	return nil
}

// publish sends an event to Redis Pub/Sub for the broadcast service and to
// JetStream for archival. Both run in the background; the write path never
// depends on them.
func (s *AuctionService) publish(kind, eventID string, ts time.Time, payload any) {
	env, err := models.NewEnvelope(kind, eventID, ts, payload)
	if err != nil {
		log.WithError(err).WithField("kind", kind).Error("Failed to build event")
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.store.PublishEvent(ctx, env); err != nil {
			metrics.PublishFailures.WithLabelValues("pubsub").Inc()
			log.WithError(err).WithField("event_id", eventID).Warn("Failed to publish event")
		}
	}()

	if s.archiver == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.archive(env); err != nil {
			metrics.PublishFailures.WithLabelValues("archive").Inc()
			log.WithError(err).WithField("event_id", eventID).Error("Failed to publish to archival queue")
		}
	}()
}

// archive retries with backoff. The stream dedups on the event id, so a
// retry after an ack that got lost does not archive twice.
func (s *AuctionService) archive(env *models.Envelope) error {
	backoff := s.retryBackoff
	var err error
	for attempt := 1; attempt <= archiveAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = s.archiver.Archive(ctx, env)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < archiveAttempts {
			log.WithError(err).WithFields(log.Fields{
				"event_id": env.EventID,
				"attempt":  attempt,
			}).Warn("Archive attempt failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("archive %s after %d attempts: %w", env.EventID, archiveAttempts, err)
}
