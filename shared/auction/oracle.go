package auction

import (
	"context"

	"cosmossdk.io/math"
)

// HolderOracle answers questions about the reference collection
type HolderOracle interface {
	// HolderTokenCount is the number of tokens minted in the collection
	HolderTokenCount(ctx context.Context) (uint64, error)
	// OwnsAny reports whether addr holds at least one token
	OwnsAny(ctx context.Context, addr Addr) (bool, error)
}

// BalanceQuerier reads the auction house's own balance of a denom
type BalanceQuerier interface {
	Balance(ctx context.Context, denom string) (math.Int, error)
}
