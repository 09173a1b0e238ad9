package clickhouse

import (
	"context"
	"fmt"
	"time"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/observability"
	"curve-sniper/internal/storage"
)

// TradeEventArchive implements storage.EventArchive using ClickHouse.
// The table is a plain MergeTree; rows are never updated or deduped.
type TradeEventArchive struct {
	conn *Conn
}

// NewTradeEventArchive creates a new TradeEventArchive.
func NewTradeEventArchive(conn *Conn) *TradeEventArchive {
	return &TradeEventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*TradeEventArchive)(nil)

// InsertBulk appends a batch of observed events.
func (s *TradeEventArchive) InsertBulk(ctx context.Context, rows []*domain.TradeEventRow) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_events (
			mint, trader, side, sol_lamports, tx_signature, slot, observed_at_ms
		)
	`)
	if err != nil {
		observability.RecordDBQuery("clickhouse", "insert_trade_events", time.Since(start).Seconds(), err)
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if r == nil || r.Mint == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Mint, r.Trader, r.Side, r.SolLamports,
			r.TxSignature, uint64(r.Slot), uint64(r.ObservedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_trade_events", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves archived events for a mint, ordered by
// observation time ASC.
func (s *TradeEventArchive) GetByMint(ctx context.Context, mint string) ([]*domain.TradeEventRow, error) {
	start := time.Now()
	query := `
		SELECT mint, trader, side, sol_lamports, tx_signature, slot, observed_at_ms
		FROM trade_events
		WHERE mint = ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	observability.RecordDBQuery("clickhouse", "select_trade_events", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query trade events: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeEventRow
	for rows.Next() {
		var r domain.TradeEventRow
		var slot, observedAt uint64
		if err := rows.Scan(&r.Mint, &r.Trader, &r.Side, &r.SolLamports, &r.TxSignature, &slot, &observedAt); err != nil {
			return nil, fmt.Errorf("scan trade event: %w", err)
		}
		r.Slot = int64(slot)
		r.ObservedAt = int64(observedAt)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade events: %w", err)
	}

	return result, nil
}
