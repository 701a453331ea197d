package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// Manager owns the live sessions, one per device id
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	weather              WeatherService
	storage              ports.KeyValueStore
	logger               ports.Logger
	metrics              ports.MetricsCollector
	config               SessionConfig
	defaultViewportWidth int
	now                  func() time.Time
}

type ManagerDependencies struct {
	Weather              WeatherService
	Storage              ports.KeyValueStore
	Logger               ports.Logger
	Metrics              ports.MetricsCollector
	Config               SessionConfig
	DefaultViewportWidth int
	Now                  func() time.Time
}

func NewManager(deps ManagerDependencies) (*Manager, error) {
	if deps.Weather == nil {
		return nil, errors.NewValidationError("weather service is required")
	}
	if deps.Storage == nil {
		return nil, errors.NewValidationError("storage is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics is required")
	}

	return &Manager{
		sessions:             make(map[string]*Session),
		weather:              deps.Weather,
		storage:              deps.Storage,
		logger:               deps.Logger,
		metrics:              deps.Metrics,
		config:               deps.Config,
		defaultViewportWidth: deps.DefaultViewportWidth,
		now:                  deps.Now,
	}, nil
}

// Create starts a session under a fresh device id
func (m *Manager) Create(ctx context.Context, viewportWidth int) (*Session, error) {
	return m.GetOrCreate(ctx, uuid.NewString(), viewportWidth)
}

// GetOrCreate returns the live session for id, or opens one and restores
// whatever the device stored earlier. A zero width uses the default.
func (m *Manager) GetOrCreate(ctx context.Context, id string, viewportWidth int) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewValidationError("session id must be a UUID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		if viewportWidth > 0 {
			session.Resize(ctx, viewportWidth)
		}
		return session, nil
	}

	if viewportWidth <= 0 {
		viewportWidth = m.defaultViewportWidth
	}

	session, err := NewSession(SessionDependencies{
		ID:            id,
		Weather:       m.weather,
		Storage:       m.storage,
		Logger:        m.logger,
		Metrics:       m.metrics,
		Config:        m.config,
		ViewportWidth: viewportWidth,
		Now:           m.now,
	})
	if err != nil {
		return nil, err
	}

	session.Restore(ctx)
	m.sessions[id] = session
	m.logger.Debug("Session opened", ports.F("session", id), ports.F("viewport_width", viewportWidth))
	return session, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session not found")
	}
	return session, nil
}

// Count reports the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session and waits for their work to drain
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		if err := s.Settle(ctx); err != nil {
			return err
		}
	}
	m.logger.Info("Sessions closed", ports.F("count", len(sessions)))
	return nil
}
