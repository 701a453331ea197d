package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"weatherdash.app/internal/config"
	"weatherdash.app/pkg/errors"
)

func TestCacheProviderFactory_CreateCacheProvider(t *testing.T) {
	factory := NewCacheProviderFactory()
	_, redisConfig := newMiniRedis(t)

	tests := []struct {
		name         string
		config       *config.CacheConfig
		expectError  bool
		expectedType interface{}
	}{
		{
			name:        "NilConfig",
			config:      nil,
			expectError: true,
		},
		{
			name:         "MemoryCache",
			config:       &config.CacheConfig{Type: config.CacheTypeMemory},
			expectedType: &MemoryCacheProvider{},
		},
		{
			name:         "RedisCache",
			config:       &config.CacheConfig{Type: config.CacheTypeRedis, Redis: *redisConfig},
			expectedType: &RedisCacheProviderAdapter{},
		},
		{
			name:        "UnknownCacheType",
			config:      &config.CacheConfig{Type: config.CacheTypeUnknown},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := factory.CreateCacheProvider(tt.config)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, provider)
				assert.True(t, errors.IsConfigurationError(err))
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.expectedType, provider)
			if closer, ok := provider.(*RedisCacheProviderAdapter); ok {
				assert.NoError(t, closer.Close())
			}
		})
	}
}

func TestCacheProviderFactory_UnreachableRedis(t *testing.T) {
	factory := NewCacheProviderFactory()

	provider, err := factory.CreateCacheProvider(&config.CacheConfig{
		Type: config.CacheTypeRedis,
		Redis: config.RedisConfig{
			Addr:        "127.0.0.1:1",
			DialTimeout: 1,
		},
	})

	assert.Nil(t, provider)
	assert.True(t, errors.IsStorageError(err))
}
