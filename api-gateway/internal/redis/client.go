package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

const (
	// stateKey holds the whole auction house as one JSON document so every
	// operation can commit it atomically
	stateKey = "brane:state"

	maxTxRetries = 5
)

var (
	ErrStateNotInitialized = errors.New("auction state not initialized")
	ErrTooManyConflicts    = errors.New("too many concurrent updates, try again")
)

// Client wraps the Redis client with auction-specific operations
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: rdb}, nil
}

// InitState stores st unless a state already exists. It reports whether st
// was written.
func (c *Client) InitState(ctx context.Context, st *auction.State) (bool, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return false, fmt.Errorf("failed to marshal state: %w", err)
	}
	ok, err := c.client.SetNX(ctx, stateKey, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to init state: %w", err)
	}
	return ok, nil
}

// LoadState reads the current state without locking it
func (c *Client) LoadState(ctx context.Context) (*auction.State, error) {
	raw, err := c.client.Get(ctx, stateKey).Bytes()
	if err == redis.Nil {
		return nil, ErrStateNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return decodeState(raw)
}

// Update runs fn inside an optimistic transaction: the state key is watched,
// fn computes the next state and the write only lands if nobody changed the
// key in between. Conflicts are retried; an error from fn aborts without
// writing anything. fn may therefore run more than once.
func (c *Client) Update(ctx context.Context, fn func(*auction.State) (*auction.State, error)) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, stateKey).Bytes()
		if err == redis.Nil {
			return ErrStateNotInitialized
		}
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		st, err := decodeState(raw)
		if err != nil {
			return err
		}

		next, err := fn(st)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stateKey, data, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := c.client.Watch(ctx, txf, stateKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.WithField("attempt", attempt).Debug("State changed during transaction, retrying")
			continue
		}
		return err
	}
	return ErrTooManyConflicts
}

func decodeState(raw []byte) (*auction.State, error) {
	var st auction.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if st.Submissions == nil {
		st.Submissions = make(map[uint64]*auction.SubmissionItem)
	}
	return &st, nil
}

func balanceKey(denom string) string {
	return fmt.Sprintf("treasury:%s:balance", denom)
}

// Balance implements auction.BalanceQuerier using the treasury:{denom}:balance key
func (c *Client) Balance(ctx context.Context, denom string) (math.Int, error) {
	val, err := c.client.Get(ctx, balanceKey(denom)).Result()
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to get %s balance: %w", denom, err)
	}
	amt, ok := math.NewIntFromString(val)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid %s balance %q", denom, val)
	}
	return amt, nil
}

// SetBalance records the treasury balance of denom
func (c *Client) SetBalance(ctx context.Context, denom string, amount math.Int) error {
	return c.client.Set(ctx, balanceKey(denom), amount.String(), 0).Err()
}

// PublishEvent publishes an event to Redis Pub/Sub
// This will be picked up by the broadcast service for real-time WebSocket updates
func (c *Client) PublishEvent(ctx context.Context, env *models.Envelope) error {
	eventJSON, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("auction_events:%s", env.Kind)
	return c.client.Publish(ctx, channel, eventJSON).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
