package holders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/The-Membrane/brane-auction/shared/auction"
)

// PostgresOracle answers holder questions from the tokens table the archival
// worker fills from executed mint instructions.
type PostgresOracle struct {
	db         *sql.DB
	collection string
}

// NewPostgresOracle opens the archival database read side
func NewPostgresOracle(connStr string, collection auction.Addr) (*PostgresOracle, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewOracle(db, collection), nil
}

// NewOracle wraps an existing connection
func NewOracle(db *sql.DB, collection auction.Addr) *PostgresOracle {
	return &PostgresOracle{db: db, collection: collection.String()}
}

// HolderTokenCount returns the number of tokens minted in the collection
func (o *PostgresOracle) HolderTokenCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tokens WHERE collection = $1`,
		o.collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}

// OwnsAny reports whether addr owns at least one token of the collection
func (o *PostgresOracle) OwnsAny(ctx context.Context, addr auction.Addr) (bool, error) {
	var owns bool
	err := o.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tokens WHERE collection = $1 AND owner = $2)`,
		o.collection, addr.String(),
	).Scan(&owns)
	if err != nil {
		return false, fmt.Errorf("failed to query token owner: %w", err)
	}
	return owns, nil
}

// Close closes the database connection
func (o *PostgresOracle) Close() error {
	return o.db.Close()
}
