package favorites

import (
	"context"
	"encoding/json"
	"time"

	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// Store is the capacity-limited list of pinned cities for one device.
// It is not safe for concurrent use; the owning session serializes access.
type Store struct {
	storage ports.KeyValueStore
	scope   string
	logger  ports.Logger
	now     func() time.Time

	entries    []*weather.Snapshot
	limit      int
	persistent bool
}

type StoreDependencies struct {
	Storage ports.KeyValueStore
	// Scope is the device id that owns the persisted entries
	Scope         string
	Logger        ports.Logger
	ViewportWidth int
	// Now defaults to time.Now
	Now func() time.Time
}

func NewStore(deps StoreDependencies) (*Store, error) {
	if deps.Storage == nil {
		return nil, errors.NewValidationError("storage is required")
	}
	if deps.Scope == "" {
		return nil, errors.NewValidationError("storage scope is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		storage: deps.Storage,
		scope:   deps.Scope,
		logger:  deps.Logger,
		now:     now,
		limit:   LimitForWidth(deps.ViewportWidth),
	}, nil
}

// Limit is the current capacity
func (s *Store) Limit() int {
	return s.limit
}

// Persistent reports whether changes are written to storage
func (s *Store) Persistent() bool {
	return s.persistent
}

// Entries returns copies of the favorites, most recently pinned first
func (s *Store) Entries() []*weather.Snapshot {
	out := make([]*weather.Snapshot, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// SetPersistence turns storage on or off. Turning it on loads the stored
// favorites and returns them; turning it off keeps the in-memory set.
func (s *Store) SetPersistence(ctx context.Context, enabled bool) []*weather.Snapshot {
	s.persistent = enabled
	if !enabled {
		return nil
	}
	return s.Load(ctx)
}

// Load replaces the in-memory set with the stored one, truncated to the
// current limit. Malformed entries are skipped. Storage failures leave the
// set unchanged. When nothing is stored yet, the in-memory set is written.
func (s *Store) Load(ctx context.Context) []*weather.Snapshot {
	data, err := s.storage.Get(ctx, s.scope, ports.FavoritesStorageKey)
	if err != nil {
		if errors.IsNotFoundError(err) {
			// Nothing stored yet: the in-memory set becomes the stored one
			s.persist(ctx)
			return s.Entries()
		}
		s.logger.Warn("Failed to load favorites", ports.F("scope", s.scope), ports.F("error", err))
		return nil
	}

	items, err := decodeEntries(data)
	if err != nil {
		s.logger.Warn("Stored favorites are not a list", ports.F("scope", s.scope), ports.F("error", err))
		return nil
	}

	if len(items) > s.limit {
		items = items[:s.limit]
	}

	now := s.now()
	loaded := make([]*weather.Snapshot, 0, len(items))
	for _, item := range items {
		entry, ok := decodeEntry(item)
		if !ok {
			continue
		}
		snapshot, ok := entry.normalize(now)
		if !ok {
			continue
		}
		loaded = append(loaded, snapshot)
	}

	s.entries = loaded
	s.logger.Debug("Favorites loaded", ports.F("scope", s.scope), ports.F("count", len(loaded)))
	s.persist(ctx)
	return s.Entries()
}

// Toggle unpins the snapshot if its id is pinned, otherwise pins it at the
// front and drops whatever no longer fits. It reports whether the snapshot
// is pinned afterwards.
func (s *Store) Toggle(ctx context.Context, snapshot *weather.Snapshot) bool {
	if snapshot == nil {
		return false
	}
	entry := snapshot.Clone()
	if entry.ID == "" {
		entry.ID = weather.DeriveID(entry.Name, entry.Country)
	}

	if i := s.indexOf(entry.ID); i >= 0 {
		s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
		s.persist(ctx)
		return false
	}

	s.entries = append([]*weather.Snapshot{entry}, s.entries...)
	s.truncate()
	s.persist(ctx)
	return true
}

// Replace swaps in a fresher snapshot for a pinned id. Unpinned ids are ignored.
func (s *Store) Replace(ctx context.Context, snapshot *weather.Snapshot) bool {
	if snapshot == nil {
		return false
	}
	i := s.indexOf(snapshot.ID)
	if i < 0 {
		return false
	}
	s.entries[i] = snapshot.Clone()
	s.persist(ctx)
	return true
}

// Remove unpins id if present
func (s *Store) Remove(ctx context.Context, id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	s.persist(ctx)
	return true
}

// Resize recomputes the limit for a new viewport width and truncates at once
func (s *Store) Resize(ctx context.Context, width int) int {
	s.limit = LimitForWidth(width)
	if s.truncate() {
		s.persist(ctx)
	}
	return s.limit
}

func (s *Store) truncate() bool {
	if len(s.entries) <= s.limit {
		return false
	}
	s.entries = s.entries[:s.limit]
	return true
}

// persist rewrites the whole stored set. Failures are logged, never returned.
func (s *Store) persist(ctx context.Context) {
	if !s.persistent {
		return
	}

	entries := s.entries
	if entries == nil {
		entries = []*weather.Snapshot{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Error("Failed to encode favorites", ports.F("scope", s.scope), ports.F("error", err))
		return
	}

	if err := s.storage.Put(ctx, s.scope, ports.FavoritesStorageKey, data); err != nil {
		s.logger.Error("Failed to persist favorites", ports.F("scope", s.scope), ports.F("error", err))
	}
}
