package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

// PostgresClient wraps the PostgreSQL database connection
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// NewClient wraps an existing connection
func NewClient(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// Schema creates the archive tables. tokens is also read by the api-gateway
// holder oracle.
const Schema = `
	CREATE TABLE IF NOT EXISTS events (
		event_id VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(32) NOT NULL,
		payload JSONB NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS submissions (
		submission_id BIGINT PRIMARY KEY,
		event_id VARCHAR(64) NOT NULL REFERENCES events(event_id),
		submitter VARCHAR(255) NOT NULL,
		token_uri TEXT NOT NULL,
		end_time TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS curation_results (
		event_id VARCHAR(64) NOT NULL REFERENCES events(event_id),
		submission_id BIGINT NOT NULL,
		voter VARCHAR(255) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		votes INT NOT NULL,
		PRIMARY KEY (event_id, submission_id)
	);

	CREATE TABLE IF NOT EXISTS bids (
		event_id VARCHAR(64) PRIMARY KEY REFERENCES events(event_id),
		auction_uri TEXT NOT NULL,
		bidder VARCHAR(255) NOT NULL,
		amount NUMERIC(78, 0) NOT NULL,
		denom VARCHAR(128) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlements (
		event_id VARCHAR(64) PRIMARY KEY REFERENCES events(event_id),
		token_id BIGINT,
		token_uri TEXT NOT NULL,
		winner VARCHAR(255),
		winning_bid NUMERIC(78, 0) NOT NULL,
		distribution_amount NUMERIC(78, 0) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS instructions (
		event_id VARCHAR(64) NOT NULL REFERENCES events(event_id),
		position INT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		reason VARCHAR(32) NOT NULL,
		recipient VARCHAR(255) NOT NULL,
		denom VARCHAR(128) NOT NULL,
		amount NUMERIC(78, 0) NOT NULL,
		PRIMARY KEY (event_id, position)
	);

	CREATE TABLE IF NOT EXISTS tokens (
		collection VARCHAR(255) NOT NULL,
		token_id BIGINT NOT NULL,
		owner VARCHAR(255) NOT NULL,
		token_uri TEXT NOT NULL,
		minted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (collection, token_id)
	);

	CREATE INDEX IF NOT EXISTS idx_bids_auction_uri ON bids(auction_uri);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder);
	CREATE INDEX IF NOT EXISTS idx_instructions_recipient ON instructions(recipient);
	CREATE INDEX IF NOT EXISTS idx_tokens_owner ON tokens(collection, owner);
`

// InitSchema creates the necessary database tables
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ArchiveSubmission stores a registered submission and its fee transfer
func (c *PostgresClient) ArchiveSubmission(ctx context.Context, env *models.Envelope, event *models.SubmissionEvent) error {
	return c.archive(ctx, env, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submissions (submission_id, event_id, submitter, token_uri, end_time)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (submission_id) DO NOTHING`,
			event.SubmissionID, env.EventID, event.Submitter, event.TokenURI, event.EndTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}
		return insertInstructions(ctx, tx, env.EventID, event.Instructions)
	})
}

// ArchiveCuration stores the per-submission outcomes of one vote call
func (c *PostgresClient) ArchiveCuration(ctx context.Context, env *models.Envelope, event *models.CurationEvent) error {
	return c.archive(ctx, env, func(tx *sql.Tx) error {
		for _, r := range event.Results {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO curation_results (event_id, submission_id, voter, outcome, votes)
				VALUES ($1, $2, $3, $4, $5)`,
				env.EventID, r.SubmissionID, event.Voter, r.Outcome.String(), r.Votes,
			)
			if err != nil {
				return fmt.Errorf("failed to insert curation result: %w", err)
			}
		}
		return nil
	})
}

// ArchiveBid stores an accepted bid and the refund of the bid it displaced
func (c *PostgresClient) ArchiveBid(ctx context.Context, env *models.Envelope, event *models.BidEvent) error {
	return c.archive(ctx, env, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bids (event_id, auction_uri, bidder, amount, denom, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			env.EventID, event.AuctionURI, event.Bidder, event.Amount, event.Denom, event.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}
		if event.Refund == nil {
			return nil
		}
		return insertInstructions(ctx, tx, env.EventID, []auction.Instruction{*event.Refund})
	})
}

// ArchiveSettlement stores a concluded auction with its instruction batch.
// Every mint instruction also lands in tokens so the new owner counts as a
// holder from then on.
func (c *PostgresClient) ArchiveSettlement(ctx context.Context, env *models.Envelope, event *models.SettlementEvent) error {
	return c.archive(ctx, env, func(tx *sql.Tx) error {
		var winner sql.NullString
		if event.Winner != "" {
			winner = sql.NullString{String: event.Winner, Valid: true}
		}
		var tokenID sql.NullInt64
		if event.TokenID != nil {
			tokenID = sql.NullInt64{Int64: int64(*event.TokenID), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO settlements (event_id, token_id, token_uri, winner, winning_bid, distribution_amount, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			env.EventID, tokenID, event.TokenURI, winner, event.WinningBid, event.DistributionAmount, event.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
		if err := insertInstructions(ctx, tx, env.EventID, event.Instructions); err != nil {
			return err
		}

		for _, ins := range event.Instructions {
			if ins.Kind != auction.InstructionMint {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tokens (collection, token_id, owner, token_uri, minted_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (collection, token_id) DO NOTHING`,
				ins.Collection.String(), int64(ins.TokenID), ins.Recipient.String(), ins.TokenURI, event.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("failed to insert token: %w", err)
			}
		}
		return nil
	})
}

// archive records env in the event log and runs fn in the same transaction.
// An event id that is already archived is skipped, which makes redelivered
// messages harmless.
func (c *PostgresClient) archive(ctx context.Context, env *models.Envelope, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events (event_id, kind, payload, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		env.EventID, env.Kind, []byte(env.Payload), env.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		log.WithField("event_id", env.EventID).Debug("Event already archived")
		return nil
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insertInstructions(ctx context.Context, tx *sql.Tx, eventID string, batch []auction.Instruction) error {
	for i, ins := range batch {
		amount := "0"
		if !ins.Coin.Amount.IsNil() {
			amount = ins.Coin.Amount.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO instructions (event_id, position, kind, reason, recipient, denom, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			eventID, i, string(ins.Kind), ins.Reason, ins.Recipient.String(), ins.Coin.Denom, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert instruction %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
