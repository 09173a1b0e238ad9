package memory

import (
	"context"
	"sort"
	"sync"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Decision // keyed by decision_id
	byMint map[string]string           // mint -> decision_id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data:   make(map[string]*domain.Decision),
		byMint: make(map[string]string),
	}
}

var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a decision. Returns ErrDuplicateKey if the decision_id or
// the mint already has one.
func (s *DecisionStore) Insert(_ context.Context, d *domain.Decision) error {
	if d == nil || d.DecisionID == "" || d.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DecisionID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byMint[d.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.DecisionID] = &copy
	s.byMint[d.Mint] = d.DecisionID
	return nil
}

// GetByMint retrieves the decision for a mint. Returns ErrNotFound if
// not exists.
func (s *DecisionStore) GetByMint(_ context.Context, mint string) (*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *s.data[id]
	return &copy, nil
}

// GetByOutcome retrieves all decisions with the given outcome, ordered
// by decision time ASC.
func (s *DecisionStore) GetByOutcome(_ context.Context, outcome string) ([]*domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Decision
	for _, d := range s.data {
		if d.Outcome == outcome {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DecidedAt < result[j].DecidedAt
	})

	return result, nil
}
