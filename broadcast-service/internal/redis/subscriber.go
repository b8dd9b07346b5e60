package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/models"
)

// ChannelPrefix is the Pub/Sub channel namespace the api-gateway publishes to
const ChannelPrefix = "auction_events:"

// Subscriber wraps Redis Pub/Sub functionality
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// NewSubscriber creates a new Redis Pub/Sub subscriber
func NewSubscriber(addr, password string, db int) (*Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Subscriber{
		client: rdb,
	}, nil
}

// SubscribeToPattern subscribes with pattern matching and waits for the
// server to confirm. "auction_events:*" covers every event kind.
func (s *Subscriber) SubscribeToPattern(ctx context.Context, pattern string) error {
	pubsub := s.client.PSubscribe(ctx, pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}
	s.pubsub = pubsub
	return nil
}

// Listen forwards decoded events to messageChan until ctx is done.
// This is a blocking operation - run in a goroutine
func (s *Subscriber) Listen(ctx context.Context, messageChan chan<- *Message) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed to any channel")
	}

	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.WithError(err).WithField("channel", msg.Channel).Warn("Failed to parse message")
				continue
			}

			select {
			case messageChan <- &Message{
				Topic:    extractTopic(msg.Channel),
				Payload:  msg.Payload,
				Envelope: env,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Message represents a parsed Pub/Sub message
type Message struct {
	Topic    string
	Payload  string // Raw JSON payload
	Envelope models.Envelope
}

// extractTopic extracts the topic from a channel name
// Example: "auction_events:bid" -> "bid"
func extractTopic(channel string) string {
	if !strings.HasPrefix(channel, ChannelPrefix) {
		return ""
	}
	return strings.TrimPrefix(channel, ChannelPrefix)
}

// Close closes the subscriber
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
	return s.client.Close()
}
