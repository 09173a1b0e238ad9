// Package postgres implements the journal stores on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/storage"
)

// LaunchStore implements storage.LaunchStore using PostgreSQL.
type LaunchStore struct {
	pool *Pool
}

// NewLaunchStore creates a new LaunchStore.
func NewLaunchStore(pool *Pool) *LaunchStore {
	return &LaunchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
func (s *LaunchStore) Insert(ctx context.Context, l *domain.Launch) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO launches (
			mint, creator, name, symbol, uri, tx_signature, slot, observed_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		l.Mint, l.Creator, l.Name, l.Symbol, l.URI,
		l.TxSignature, l.Slot, l.ObservedAt,
	)
	observability.RecordDBQuery("postgres", "insert_launch", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch: %w", err)
	}
	return nil
}

// GetByMint retrieves a launch. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByMint(ctx context.Context, mint string) (*domain.Launch, error) {
	query := `
		SELECT mint, creator, name, symbol, uri, tx_signature, slot, observed_at_ms
		FROM launches
		WHERE mint = $1
	`

	start := time.Now()
	var l domain.Launch
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&l.Mint, &l.Creator, &l.Name, &l.Symbol, &l.URI,
		&l.TxSignature, &l.Slot, &l.ObservedAt,
	)
	observability.RecordDBQuery("postgres", "get_launch", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch: %w", err)
	}
	return &l, nil
}

// GetByCreator retrieves all launches by a deployer wallet, ordered by
// observation time ASC.
func (s *LaunchStore) GetByCreator(ctx context.Context, creator string) ([]*domain.Launch, error) {
	query := `
		SELECT mint, creator, name, symbol, uri, tx_signature, slot, observed_at_ms
		FROM launches
		WHERE creator = $1
		ORDER BY observed_at_ms ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, creator)
	observability.RecordDBQuery("postgres", "get_launches_by_creator", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close()

	var result []*domain.Launch
	for rows.Next() {
		var l domain.Launch
		if err := rows.Scan(
			&l.Mint, &l.Creator, &l.Name, &l.Symbol, &l.URI,
			&l.TxSignature, &l.Slot, &l.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launches: %w", err)
	}

	return result, nil
}
