package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/models"
)

const (
	durableName = "archival-worker"
	maxDeliver  = 5
)

// Store persists archived events. Implemented by database.PostgresClient.
type Store interface {
	ArchiveSubmission(ctx context.Context, env *models.Envelope, event *models.SubmissionEvent) error
	ArchiveCuration(ctx context.Context, env *models.Envelope, event *models.CurationEvent) error
	ArchiveBid(ctx context.Context, env *models.Envelope, event *models.BidEvent) error
	ArchiveSettlement(ctx context.Context, env *models.Envelope, event *models.SettlementEvent) error
}

// message is the part of jetstream.Msg the handler needs
type message interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

// errMalformed marks messages that can never be archived
var errMalformed = errors.New("malformed event")

// JetStreamConsumer consumes auction events from JetStream and persists them
type JetStreamConsumer struct {
	conn  *nats.Conn
	js    jetstream.JetStream
	store Store
}

// NewJetStreamConsumer connects to NATS and creates the JetStream context
func NewJetStreamConsumer(natsURL string, store Store) (*JetStreamConsumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamConsumer{
		conn:  conn,
		js:    js,
		store: store,
	}, nil
}

// Start attaches a durable consumer to the auction event stream and blocks
// until ctx is cancelled. The stream is created by the api-gateway.
func (c *JetStreamConsumer) Start(ctx context.Context) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, models.StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: models.SubjectPrefix + ".*",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer on %s: %w", models.StreamName, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	log.WithFields(log.Fields{
		"stream":  models.StreamName,
		"durable": durableName,
	}).Info("Consuming auction events")

	<-ctx.Done()
	return nil
}

// handleMessage archives one event. Malformed messages are terminated so they
// are not redelivered; storage failures are nacked for another attempt.
func (c *JetStreamConsumer) handleMessage(ctx context.Context, msg message) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	env, err := c.persist(dbCtx, msg.Data())
	entry := log.WithField("subject", msg.Subject())
	if env != nil {
		entry = entry.WithFields(log.Fields{"event_id": env.EventID, "kind": env.Kind})
	}

	switch {
	case errors.Is(err, errMalformed):
		entry.WithError(err).Error("Dropping malformed event")
		if err := msg.Term(); err != nil {
			entry.WithError(err).Warn("Failed to terminate message")
		}
	case err != nil:
		entry.WithError(err).Warn("Failed to persist event, will retry")
		if err := msg.Nak(); err != nil {
			entry.WithError(err).Warn("Failed to nak message")
		}
	default:
		entry.Debug("Persisted event")
		if err := msg.Ack(); err != nil {
			entry.WithError(err).Warn("Failed to ack message")
		}
	}
}

func (c *JetStreamConsumer) persist(ctx context.Context, data []byte) (*models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch env.Kind {
	case models.KindSubmission:
		var event models.SubmissionEvent
		if err := decode(&env, &event); err != nil {
			return &env, err
		}
		return &env, c.store.ArchiveSubmission(ctx, &env, &event)
	case models.KindCuration:
		var event models.CurationEvent
		if err := decode(&env, &event); err != nil {
			return &env, err
		}
		return &env, c.store.ArchiveCuration(ctx, &env, &event)
	case models.KindBid:
		var event models.BidEvent
		if err := decode(&env, &event); err != nil {
			return &env, err
		}
		return &env, c.store.ArchiveBid(ctx, &env, &event)
	case models.KindSettlement:
		var event models.SettlementEvent
		if err := decode(&env, &event); err != nil {
			return &env, err
		}
		return &env, c.store.ArchiveSettlement(ctx, &env, &event)
	default:
		return &env, fmt.Errorf("%w: unknown kind %q", errMalformed, env.Kind)
	}
}

func decode(env *models.Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", errMalformed, env.Kind, err)
	}
	return nil
}

// Close closes the NATS connection
func (c *JetStreamConsumer) Close() error {
	c.conn.Close()
	return nil
}
