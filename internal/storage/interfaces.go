// Package storage defines the journal interfaces the engine records
// through. Memory implementations back tests and dry runs; Postgres
// and ClickHouse back production.
package storage

import (
	"context"

	"curve-sniper/internal/domain"
)

// LaunchStore provides access to launches storage.
type LaunchStore interface {
	// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, l *domain.Launch) error

	// GetByMint retrieves a launch. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Launch, error)

	// GetByCreator retrieves all launches by a deployer wallet,
	// ordered by observation time ASC.
	GetByCreator(ctx context.Context, creator string) ([]*domain.Launch, error)
}

// DecisionStore provides access to decisions storage.
type DecisionStore interface {
	// Insert adds a decision. Returns ErrDuplicateKey if the decision_id
	// or the mint already has one; a launch is decided at most once.
	Insert(ctx context.Context, d *domain.Decision) error

	// GetByMint retrieves the decision for a mint. Returns ErrNotFound
	// if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Decision, error)

	// GetByOutcome retrieves all decisions with the given outcome,
	// ordered by decision time ASC.
	GetByOutcome(ctx context.Context, outcome string) ([]*domain.Decision, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a submitted trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// Resolve records the confirmation outcome of a submitted trade.
	// Returns ErrNotFound if the trade does not exist.
	Resolve(ctx context.Context, tradeID, status, errorKind string, slot, resolvedAtMs int64) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByMint retrieves all trades for a mint, ordered by submit time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Trade, error)
}

// EventArchive stores raw observed trade events append-only for
// offline analysis.
type EventArchive interface {
	// InsertBulk appends a batch of observed events.
	InsertBulk(ctx context.Context, rows []*domain.TradeEventRow) error

	// GetByMint retrieves archived events for a mint, ordered by
	// observation time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeEventRow, error)
}
