package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"weatherdash.app/internal/core/favorites"
	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// WeatherService is the cache-aware weather use case a session drives
type WeatherService interface {
	Current(ctx context.Context, city string) (*weather.Snapshot, error)
	Refresh(ctx context.Context, city string) (*weather.Snapshot, error)
	Seed(ctx context.Context, snapshot *weather.Snapshot)
	Hourly(ctx context.Context, snapshot *weather.Snapshot) (*ports.HourlyForecast, error)
	Weekly(ctx context.Context, snapshot *weather.Snapshot) (*ports.WeeklyForecast, error)
}

// SessionConfig tunes search and rendering
type SessionConfig struct {
	Debounce       time.Duration
	MinQueryLength int
	IconBaseURL    string
}

// User is the signed-in marker stored under app_user
type User struct {
	Name string `json:"name"`
}

// Search triggers, used as metric labels
const (
	triggerDebounce = "debounce"
	triggerSubmit   = "submit"
	triggerRefresh  = "refresh"
)

// Session is the dashboard state of one device.
//
// Every event handler and every asynchronous completion mutates state while
// holding mu. Fetches run on their own goroutines without the lock. pending
// counts scheduled timers and in-flight fetches so Settle can wait for them.
type Session struct {
	id        string
	weather   WeatherService
	favorites *favorites.Store
	storage   ports.KeyValueStore
	logger    ports.Logger
	metrics   ports.MetricsCollector
	config    SessionConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	query         string
	searching     int
	searchErr     string
	cards         CardList
	user          *User
	viewportWidth int
	debounce      *time.Timer
	searchGen     uint64
	searchSeq     uint64
	panels        map[PanelKind]*panelState
	pending       int
	idle          chan struct{}
	closed        bool
}

type SessionDependencies struct {
	ID            string
	Weather       WeatherService
	Storage       ports.KeyValueStore
	Logger        ports.Logger
	Metrics       ports.MetricsCollector
	Config        SessionConfig
	ViewportWidth int
	// Now defaults to time.Now
	Now func() time.Time
}

func NewSession(deps SessionDependencies) (*Session, error) {
	if deps.ID == "" {
		return nil, errors.NewValidationError("session id is required")
	}
	if deps.Weather == nil {
		return nil, errors.NewValidationError("weather service is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics is required")
	}
	if deps.Config.MinQueryLength < 1 {
		return nil, errors.NewValidationError("minimum query length must be positive")
	}

	store, err := favorites.NewStore(favorites.StoreDependencies{
		Storage:       deps.Storage,
		Scope:         deps.ID,
		Logger:        deps.Logger,
		ViewportWidth: deps.ViewportWidth,
		Now:           deps.Now,
	})
	if err != nil {
		return nil, err
	}

	panels := make(map[PanelKind]*panelState, len(PanelKinds))
	for _, kind := range PanelKinds {
		panels[kind] = &panelState{kind: kind}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:            deps.ID,
		weather:       deps.Weather,
		favorites:     store,
		storage:       deps.Storage,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		config:        deps.Config,
		ctx:           ctx,
		cancel:        cancel,
		viewportWidth: deps.ViewportWidth,
		panels:        panels,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Restore signs the session in when the device has a stored user
func (s *Session) Restore(ctx context.Context) {
	data, err := s.storage.Get(ctx, s.id, ports.UserStorageKey)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			s.logger.Warn("Failed to read signed-in user", ports.F("session", s.id), ports.F("error", err))
		}
		return
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Warn("Stored user is malformed", ports.F("session", s.id), ports.F("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInLocked(ctx, user)
}

// Login stores the user and turns favorites persistence on
func (s *Session) Login(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValidationError("name is required")
	}

	user := User{Name: name}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Put(ctx, s.id, ports.UserStorageKey, data); err != nil {
		s.logger.Warn("Failed to store signed-in user", ports.F("session", s.id), ports.F("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInLocked(ctx, user)
	return nil
}

func (s *Session) signInLocked(ctx context.Context, user User) {
	s.user = &user
	loaded := s.favorites.SetPersistence(ctx, true)
	s.cards = s.cards.PrependMissing(loaded...)
	for _, f := range loaded {
		s.weather.Seed(ctx, f)
	}
	s.logger.Info("Session signed in", ports.F("session", s.id), ports.F("favorites", len(loaded)))
}

// Logout forgets the user and stops persisting favorites. The favorites
// already on screen stay.
func (s *Session) Logout(ctx context.Context) {
	if err := s.storage.Delete(ctx, s.id, ports.UserStorageKey); err != nil {
		s.logger.Warn("Failed to remove signed-in user", ports.F("session", s.id), ports.F("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.favorites.SetPersistence(ctx, false)
}

// SetQuery records typed input and restarts the debounce timer.
// Queries shorter than the minimum cancel any pending search and do nothing else.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	s.cancelDebounceLocked()
	if s.closed {
		return
	}

	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < s.config.MinQueryLength {
		return
	}

	gen := s.searchGen
	s.startWorkLocked()
	s.debounce = time.AfterFunc(s.config.Debounce, func() {
		s.fireDebounce(gen, trimmed)
	})
}

func (s *Session) fireDebounce(gen uint64, query string) {
	s.mu.Lock()
	if gen != s.searchGen {
		s.finishWorkLocked()
		s.mu.Unlock()
		return
	}
	s.debounce = nil
	s.beginSearchLocked()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	s.search(triggerDebounce, query, seq)
}

// Submit searches for query at once, cancelling any pending debounced search.
// A query shorter than the minimum fills the error slot and fetches nothing.
func (s *Session) Submit(query string) error {
	s.mu.Lock()

	s.query = query
	s.cancelDebounceLocked()

	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < s.config.MinQueryLength {
		s.searchSeq++
		s.searchErr = shortQueryMessage(s.config.MinQueryLength)
		s.mu.Unlock()
		return errors.NewValidationError(s.searchErr)
	}

	s.beginSearchLocked()
	s.startWorkLocked()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	go s.search(triggerSubmit, trimmed, seq)
	return nil
}

func shortQueryMessage(minLength int) string {
	return fmt.Sprintf("Type at least %d characters", minLength)
}

// search runs one counted unit of work started by the caller. A result whose
// seq is older than the latest started search is dropped.
func (s *Session) search(trigger, query string, seq uint64) {
	s.metrics.RecordSearch(trigger)
	snapshot, err := s.weather.Current(s.ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishWorkLocked()

	s.searching--
	if seq != s.searchSeq {
		s.logger.Debug("Discarding superseded search result", ports.F("session", s.id), ports.F("query", query))
		return
	}
	if err != nil {
		s.searchErr = errors.UserMessage(err, "")
		s.logger.Warn("Search failed", ports.F("session", s.id), ports.F("query", query), ports.F("error", err))
		return
	}
	s.cards = s.cards.MergeFront(snapshot)
}

// Refresh re-fetches a card by name, bypassing the cache, and swaps the new
// snapshot into the card list, the favorites and any panel showing it
func (s *Session) Refresh(id string) error {
	s.mu.Lock()
	card := s.lookupLocked(id)
	if card == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("card not found")
	}
	s.beginSearchLocked()
	s.startWorkLocked()
	s.mu.Unlock()

	go s.refresh(card.Name)
	return nil
}

func (s *Session) refresh(name string) {
	s.metrics.RecordSearch(triggerRefresh)
	updated, err := s.weather.Refresh(s.ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishWorkLocked()

	s.searching--
	if err != nil {
		s.searchErr = errors.UserMessage(err, "")
		s.logger.Warn("Refresh failed", ports.F("session", s.id), ports.F("city", name), ports.F("error", err))
		return
	}

	s.cards = s.cards.Replace(updated)
	s.favorites.Replace(s.ctx, updated)
	for _, p := range s.panels {
		if p.openFor == updated.ID {
			p.card = updated
		}
	}
}

// Delete removes a card from the list and the favorites and closes every
// panel open for it
func (s *Session) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cards = s.cards.Remove(id)
	s.favorites.Remove(ctx, id)
	for _, p := range s.panels {
		if p.openFor == id {
			p.close()
		}
	}
}

// ToggleFavorite pins or unpins a card and reports whether it is pinned now
func (s *Session) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.lookupLocked(id)
	if card == nil {
		return false, errors.NewNotFoundError("card not found")
	}

	pinned := s.favorites.Toggle(ctx, card)
	s.cards = s.cards.Upsert(card)
	return pinned, nil
}

// TogglePanel opens kind for a card, or closes it when it is already open
// for that card. Hourly and weekly panels load in the background.
func (s *Session) TogglePanel(kind PanelKind, id string) error {
	if !kind.IsValid() {
		return errors.NewValidationError("unknown panel " + string(kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.panels[kind]
	if p.isOpen() && p.openFor == id {
		p.close()
		return nil
	}

	card := s.lookupLocked(id)
	if card == nil {
		return errors.NewNotFoundError("card not found")
	}

	token := p.open(card)
	if kind == PanelQuickStats {
		s.cards = s.cards.PrependMissing(card)
		return nil
	}

	s.startWorkLocked()
	go s.loadPanel(kind, card, token)
	return nil
}

func (s *Session) loadPanel(kind PanelKind, card *weather.Snapshot, token uint64) {
	var (
		hourly *ports.HourlyForecast
		weekly *ports.WeeklyForecast
		err    error
	)
	switch kind {
	case PanelHourly:
		hourly, err = s.weather.Hourly(s.ctx, card)
	case PanelWeekly:
		weekly, err = s.weather.Weekly(s.ctx, card)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishWorkLocked()

	p := s.panels[kind]
	if !p.current(token) {
		s.metrics.RecordStaleResult(kind.String())
		s.logger.Debug("Discarding stale panel result", ports.F("session", s.id), ports.F("panel", kind), ports.F("card", card.ID))
		return
	}

	p.loading = false
	if err != nil {
		p.err = errors.UserMessage(err, kind.fallbackMessage())
		s.logger.Warn("Panel load failed", ports.F("session", s.id), ports.F("panel", kind), ports.F("card", card.ID), ports.F("error", err))
		return
	}
	p.hourly = hourly
	p.weekly = weekly
}

// Resize applies a new viewport width and returns the favorites limit
func (s *Session) Resize(ctx context.Context, width int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewportWidth = width
	return s.favorites.Resize(ctx, width)
}

// State renders the current view model
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.favorites.Entries()
	favIDs := make([]string, len(favs))
	for i, f := range favs {
		favIDs[i] = f.ID
	}

	visible := VisibleCards(favs, s.cards, s.favorites.Limit())
	cards := make([]CardView, len(visible))
	for i, c := range visible {
		cards[i] = RenderCard(c, s.favorites.Contains(c.ID), s.config.IconBaseURL)
	}

	state := State{
		SessionID:     s.id,
		Query:         s.query,
		Loading:       s.searching > 0,
		Error:         s.searchErr,
		SignedIn:      s.user != nil,
		ViewportWidth: s.viewportWidth,
		FavoriteLimit: s.favorites.Limit(),
		Favorites:     favIDs,
		Cards:         cards,
		CardCount:     len(s.cards),
		Panels: PanelsView{
			QuickStats: renderPanel(s.panels[PanelQuickStats], s.favorites.Contains, s.config.IconBaseURL),
			Hourly:     renderPanel(s.panels[PanelHourly], s.favorites.Contains, s.config.IconBaseURL),
			Weekly:     renderPanel(s.panels[PanelWeekly], s.favorites.Contains, s.config.IconBaseURL),
		},
	}
	if s.user != nil {
		state.User = s.user.Name
	}
	return state
}

// Settle waits until no debounce timer or fetch is outstanding
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the pending search and every in-flight fetch
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelDebounceLocked()
	s.mu.Unlock()

	s.cancel()
}

func (s *Session) lookupLocked(id string) *weather.Snapshot {
	if card := s.cards.Find(id); card != nil {
		return card
	}
	for _, f := range s.favorites.Entries() {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Session) beginSearchLocked() {
	s.searchErr = ""
	s.searching++
}

// cancelDebounceLocked invalidates the pending timer. A timer that already
// fired sees the new generation and gives up on its own.
func (s *Session) cancelDebounceLocked() {
	s.searchGen++
	if s.debounce != nil && s.debounce.Stop() {
		s.finishWorkLocked()
	}
	s.debounce = nil
}

func (s *Session) startWorkLocked() {
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
}

func (s *Session) finishWorkLocked() {
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}
