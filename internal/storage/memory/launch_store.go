// Package memory provides in-memory journal implementations for tests
// and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"curve-sniper/internal/domain"
	"curve-sniper/internal/storage"
)

// LaunchStore is an in-memory implementation of storage.LaunchStore.
type LaunchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Launch // keyed by mint
}

// NewLaunchStore creates a new in-memory launch store.
func NewLaunchStore() *LaunchStore {
	return &LaunchStore{data: make(map[string]*domain.Launch)}
}

var _ storage.LaunchStore = (*LaunchStore)(nil)

// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
func (s *LaunchStore) Insert(_ context.Context, l *domain.Launch) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *l
	s.data[l.Mint] = &copy
	return nil
}

// GetByMint retrieves a launch. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByMint(_ context.Context, mint string) (*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *l
	return &copy, nil
}

// GetByCreator retrieves all launches by a deployer wallet, ordered by
// observation time ASC.
func (s *LaunchStore) GetByCreator(_ context.Context, creator string) ([]*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Launch
	for _, l := range s.data {
		if l.Creator == creator {
			copy := *l
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})

	return result, nil
}
