package postgres

import (
	"context"
	"fmt"
	"time"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a submitted trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (
			trade_id, mint, side, tx_signature,
			sol_lamports, token_amount, bound, slippage_bps,
			status, error_kind, slot, submitted_at_ms, resolved_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.Mint, t.Side, t.TxSignature,
		int64(t.SolLamports), int64(t.TokenAmount), int64(t.Bound), int64(t.SlippageBps),
		t.Status, t.ErrorKind, t.Slot, t.SubmittedAt, t.ResolvedAt,
	)
	observability.RecordDBQuery("postgres", "insert_trade", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Resolve records the confirmation outcome of a submitted trade.
// Returns ErrNotFound if the trade does not exist.
func (s *TradeStore) Resolve(ctx context.Context, tradeID, status, errorKind string, slot, resolvedAtMs int64) error {
	if tradeID == "" || status == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trades
		SET status = $2, error_kind = $3, slot = $4, resolved_at_ms = $5
		WHERE trade_id = $1
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, tradeID, status, errorKind, slot, resolvedAtMs)
	observability.RecordDBQuery("postgres", "resolve_trade", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("resolve trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `
		SELECT trade_id, mint, side, tx_signature,
		       sol_lamports, token_amount, bound, slippage_bps,
		       status, error_kind, slot, submitted_at_ms, resolved_at_ms
		FROM trades
		WHERE trade_id = $1
	`

	start := time.Now()
	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	observability.RecordDBQuery("postgres", "get_trade", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// GetByMint retrieves all trades for a mint, ordered by submit time ASC.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.Trade, error) {
	query := `
		SELECT trade_id, mint, side, tx_signature,
		       sol_lamports, token_amount, bound, slippage_bps,
		       status, error_kind, slot, submitted_at_ms, resolved_at_ms
		FROM trades
		WHERE mint = $1
		ORDER BY submitted_at_ms ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, mint)
	observability.RecordDBQuery("postgres", "get_trades_by_mint", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var solLamports, tokenAmount, bound, slippageBps int64
	err := row.Scan(
		&t.TradeID, &t.Mint, &t.Side, &t.TxSignature,
		&solLamports, &tokenAmount, &bound, &slippageBps,
		&t.Status, &t.ErrorKind, &t.Slot, &t.SubmittedAt, &t.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SolLamports = uint64(solLamports)
	t.TokenAmount = uint64(tokenAmount)
	t.Bound = uint64(bound)
	t.SlippageBps = uint64(slippageBps)
	return &t, nil
}
