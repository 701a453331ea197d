package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// KeyValueStore is a mock type for the ports.KeyValueStore interface
type KeyValueStore struct {
	mock.Mock
}

// NewKeyValueStore creates a mock that asserts its expectations on cleanup
func NewKeyValueStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *KeyValueStore {
	m := &KeyValueStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *KeyValueStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	args := m.Called(ctx, scope, key)
	var value []byte
	if v := args.Get(0); v != nil {
		value = v.([]byte)
	}
	return value, args.Error(1)
}

func (m *KeyValueStore) Put(ctx context.Context, scope, key string, value []byte) error {
	args := m.Called(ctx, scope, key, value)
	return args.Error(0)
}

func (m *KeyValueStore) Delete(ctx context.Context, scope, key string) error {
	args := m.Called(ctx, scope, key)
	return args.Error(0)
}
