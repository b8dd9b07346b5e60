package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/models"
)

// JetStreamArchiver publishes events to NATS JetStream for archival persistence.
// JetStream gives at-least-once delivery; the event id doubles as the message
// id so redeliveries of a publish are deduplicated by the server.
type JetStreamArchiver struct {
	js jetstream.JetStream
}

// NewJetStreamArchiver creates the JetStream context and makes sure the
// stream exists
func NewJetStreamArchiver(natsConn *nats.Conn) (*JetStreamArchiver, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        models.StreamName,
		Description: "Auction events for archival",
		Subjects:    []string{models.SubjectPrefix + ".*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}
	log.WithField("stream", models.StreamName).Info("JetStream stream ready")

	return &JetStreamArchiver{js: js}, nil
}

// Archive publishes env and waits for the server acknowledgement
func (a *JetStreamArchiver) Archive(ctx context.Context, env *models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := models.Subject(env.Kind)
	ack, err := a.js.Publish(ctx, subject, data, jetstream.WithMsgID(env.EventID))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	log.WithFields(log.Fields{
		"subject":  subject,
		"seq":      ack.Sequence,
		"event_id": env.EventID,
	}).Debug("Archived event")
	return nil
}
