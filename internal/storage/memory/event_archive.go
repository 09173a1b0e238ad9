package memory

import (
	"context"
	"sort"
	"sync"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/storage"
)

// EventArchive is an in-memory implementation of storage.EventArchive.
type EventArchive struct {
	mu   sync.RWMutex
	rows []*domain.TradeEventRow
}

// NewEventArchive creates a new in-memory event archive.
func NewEventArchive() *EventArchive {
	return &EventArchive{}
}

var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBulk appends a batch of observed events.
func (s *EventArchive) InsertBulk(_ context.Context, rows []*domain.TradeEventRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.Mint == "" {
			return storage.ErrInvalidInput
		}
		copy := *r
		s.rows = append(s.rows, &copy)
	}
	return nil
}

// GetByMint retrieves archived events for a mint, ordered by
// observation time ASC.
func (s *EventArchive) GetByMint(_ context.Context, mint string) ([]*domain.TradeEventRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEventRow
	for _, r := range s.rows {
		if r.Mint == mint {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})

	return result, nil
}
