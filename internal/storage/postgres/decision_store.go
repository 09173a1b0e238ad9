package postgres

import (
	"context"
	"fmt"
	"time"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a decision. The UNIQUE constraint on mint enforces one
// decision per launch; violations map to ErrDuplicateKey.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.Decision) error {
	if d == nil || d.DecisionID == "" || d.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO decisions (
			decision_id, mint, outcome, reason, detail,
			age_seconds, total_sol_in, unique_buyers, sell_count,
			velocity, concentration_pct, decided_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		d.DecisionID, d.Mint, d.Outcome, d.Reason, d.Detail,
		d.AgeSeconds, d.TotalSolIn, d.UniqueBuyers, d.SellCount,
		d.Velocity, d.ConcentrationPct, d.DecidedAt,
	)
	observability.RecordDBQuery("postgres", "insert_decision", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetByMint retrieves the decision for a mint. Returns ErrNotFound if
// not exists.
func (s *DecisionStore) GetByMint(ctx context.Context, mint string) (*domain.Decision, error) {
	query := `
		SELECT decision_id, mint, outcome, reason, detail,
		       age_seconds, total_sol_in, unique_buyers, sell_count,
		       velocity, concentration_pct, decided_at_ms
		FROM decisions
		WHERE mint = $1
	`

	start := time.Now()
	var d domain.Decision
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&d.DecisionID, &d.Mint, &d.Outcome, &d.Reason, &d.Detail,
		&d.AgeSeconds, &d.TotalSolIn, &d.UniqueBuyers, &d.SellCount,
		&d.Velocity, &d.ConcentrationPct, &d.DecidedAt,
	)
	observability.RecordDBQuery("postgres", "get_decision", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return &d, nil
}

// GetByOutcome retrieves all decisions with the given outcome, ordered
// by decision time ASC.
func (s *DecisionStore) GetByOutcome(ctx context.Context, outcome string) ([]*domain.Decision, error) {
	query := `
		SELECT decision_id, mint, outcome, reason, detail,
		       age_seconds, total_sol_in, unique_buyers, sell_count,
		       velocity, concentration_pct, decided_at_ms
		FROM decisions
		WHERE outcome = $1
		ORDER BY decided_at_ms ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, outcome)
	observability.RecordDBQuery("postgres", "get_decisions_by_outcome", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Decision
	for rows.Next() {
		var d domain.Decision
		if err := rows.Scan(
			&d.DecisionID, &d.Mint, &d.Outcome, &d.Reason, &d.Detail,
			&d.AgeSeconds, &d.TotalSolIn, &d.UniqueBuyers, &d.SellCount,
			&d.Velocity, &d.ConcentrationPct, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return result, nil
}
