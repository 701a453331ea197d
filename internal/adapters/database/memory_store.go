package database

import (
	"context"
	"sync"

	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// MemoryKeyValueStore keeps device storage in process memory
type MemoryKeyValueStore struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{values: make(map[string]map[string][]byte)}
}

func (s *MemoryKeyValueStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	if err := validateKey(scope, key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[scope][key]
	if !ok {
		return nil, errors.NewNotFoundError("no stored value for " + key)
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryKeyValueStore) Put(ctx context.Context, scope, key string, value []byte) error {
	if err := validateKey(scope, key); err != nil {
		return err
	}
	if value == nil {
		return errors.NewValidationError("stored value cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values[scope] == nil {
		s.values[scope] = make(map[string][]byte)
	}
	s.values[scope][key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryKeyValueStore) Delete(ctx context.Context, scope, key string) error {
	if err := validateKey(scope, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values[scope], key)
	return nil
}

var _ ports.KeyValueStore = (*MemoryKeyValueStore)(nil)
