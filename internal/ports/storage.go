package ports

import "context"

// Storage keys, scoped per device
const (
	FavoritesStorageKey = "weather_favorites_v3"
	UserStorageKey      = "app_user"
)

// KeyValueStore persists JSON documents per device scope.
// Get returns a NOT_FOUND_ERROR when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
}
