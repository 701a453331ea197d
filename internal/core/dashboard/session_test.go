package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"weatherdash.app/internal/adapters/database"
	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/mocks"
	"weatherdash.app/internal/ports"
	apperrors "weatherdash.app/pkg/errors"
)

const testSessionID = "0b4f5a52-2f6f-4f37-9c55-8f1f5f0c8a11"

// fakeWeather serves canned snapshots and lets tests hold searches and panel
// fetches open
type fakeWeather struct {
	mu           sync.Mutex
	cities       map[string]*weather.Snapshot
	currentCalls []string
	refreshCalls []string
	seeded       []string
	gates        map[string]chan struct{}
	hourlyErr    error
	weeklyErr    error
}

func newFakeWeather(cities ...*weather.Snapshot) *fakeWeather {
	f := &fakeWeather{
		cities: make(map[string]*weather.Snapshot),
		gates:  make(map[string]chan struct{}),
	}
	for _, c := range cities {
		f.cities[strings.ToLower(c.Name)] = c
	}
	return f
}

func (f *fakeWeather) Current(ctx context.Context, city string) (*weather.Snapshot, error) {
	f.wait("current:" + strings.ToLower(city))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls = append(f.currentCalls, city)
	snap, ok := f.cities[strings.ToLower(city)]
	if !ok {
		return nil, apperrors.NewAPIError(404, "city not found")
	}
	return snap, nil
}

func (f *fakeWeather) Refresh(ctx context.Context, city string) (*weather.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls = append(f.refreshCalls, city)
	snap, ok := f.cities[strings.ToLower(city)]
	if !ok {
		return nil, apperrors.NewAPIError(404, "city not found")
	}
	updated := snap.Clone()
	temp := *snap.TemperatureC + 10
	updated.TemperatureC = &temp
	return updated, nil
}

func (f *fakeWeather) Seed(ctx context.Context, snapshot *weather.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded = append(f.seeded, snapshot.ID)
}

func (f *fakeWeather) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeWeather) wait(id string) {
	f.mu.Lock()
	ch := f.gates[id]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeWeather) Hourly(ctx context.Context, s *weather.Snapshot) (*ports.HourlyForecast, error) {
	f.wait(s.ID)
	if f.hourlyErr != nil {
		return nil, f.hourlyErr
	}
	return &ports.HourlyForecast{Labels: []string{s.ID}}, nil
}

func (f *fakeWeather) Weekly(ctx context.Context, s *weather.Snapshot) (*ports.WeeklyForecast, error) {
	f.wait(s.ID)
	if f.weeklyErr != nil {
		return nil, f.weeklyErr
	}
	return &ports.WeeklyForecast{
		Days:   []ports.DailyForecast{{Weekday: "Wed, Nov 15", Icon: "01d"}},
		Source: ports.WeeklySourceDaily,
	}, nil
}

func (f *fakeWeather) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.currentCalls...), append([]string(nil), f.refreshCalls...)
}

func city(name, country string, temp float64) *weather.Snapshot {
	return &weather.Snapshot{
		ID:           weather.DeriveID(name, country),
		Name:         name,
		Country:      country,
		TemperatureC: &temp,
		Description:  "clear sky",
		Icon:         "01d",
	}
}

func testCities() []*weather.Snapshot {
	return []*weather.Snapshot{
		city("Kyiv", "UA", 1),
		city("Lviv", "UA", 2),
		city("Odesa", "UA", 3),
		city("London", "GB", 4),
		city("Lond", "GB", 5),
	}
}

type sessionOptions struct {
	weather  WeatherService
	storage  ports.KeyValueStore
	metrics  ports.MetricsCollector
	width    int
	debounce time.Duration
}

func newTestSession(t *testing.T, opts sessionOptions) *Session {
	t.Helper()
	if opts.storage == nil {
		opts.storage = database.NewMemoryKeyValueStore()
	}
	if opts.metrics == nil {
		opts.metrics = mocks.NewPermissiveMetricsCollector()
	}
	if opts.width == 0 {
		opts.width = 1200
	}
	if opts.debounce == 0 {
		opts.debounce = 20 * time.Millisecond
	}

	s, err := NewSession(SessionDependencies{
		ID:      testSessionID,
		Weather: opts.weather,
		Storage: opts.storage,
		Logger:  mocks.NewPermissiveLogger(),
		Metrics: opts.metrics,
		Config: SessionConfig{
			Debounce:       opts.debounce,
			MinQueryLength: 2,
			IconBaseURL:    "https://openweathermap.org/img/wn",
		},
		ViewportWidth: opts.width,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func settle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}

func submit(t *testing.T, s *Session, query string) {
	t.Helper()
	require.NoError(t, s.Submit(query))
	settle(t, s)
}

func cardIDs(cards []CardView) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(SessionDependencies{})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = NewSession(SessionDependencies{
		ID:      testSessionID,
		Weather: newFakeWeather(),
		Metrics: mocks.NewPermissiveMetricsCollector(),
		Config:  SessionConfig{MinQueryLength: 2},
	})
	assert.True(t, apperrors.IsValidationError(err), "storage and logger are required")
}

func TestSession_DebounceFetchesOnlyTheLastQuery(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw, debounce: 50 * time.Millisecond})

	for _, q := range []string{"L", "Lo", "Lon", "Lond "} {
		s.SetQuery(q)
		time.Sleep(5 * time.Millisecond)
	}
	settle(t, s)

	current, _ := fw.calls()
	assert.Equal(t, []string{"Lond"}, current)
	assert.Equal(t, []string{"Lond-GB"}, cardIDs(s.State().Cards))
	assert.Equal(t, "Lond ", s.State().Query)
}

func TestSession_ShortQueryCancelsPendingSearch(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw, debounce: 50 * time.Millisecond})

	s.SetQuery("Kyiv")
	s.SetQuery("K")
	settle(t, s)

	current, _ := fw.calls()
	assert.Empty(t, current)
	assert.Empty(t, s.State().Error)
}

func TestSession_ShortSubmitIsRejectedWithoutFetching(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})

	err := s.Submit(" a ")

	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, "Type at least 2 characters", s.State().Error)
	settle(t, s)
	current, _ := fw.calls()
	assert.Empty(t, current)
}

func TestSession_SubmitCancelsPendingDebounce(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw, debounce: time.Hour})

	s.SetQuery("Kyiv")
	submit(t, s, "Lviv")

	current, _ := fw.calls()
	assert.Equal(t, []string{"Lviv"}, current)
}

func TestSession_SearchMergesToFront(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})

	submit(t, s, "Kyiv")
	submit(t, s, "Lviv")
	submit(t, s, "kyiv")

	state := s.State()
	assert.Equal(t, []string{"Kyiv-UA", "Lviv-UA"}, cardIDs(state.Cards))
	assert.Equal(t, 2, state.CardCount)
	assert.False(t, state.Loading)
}

func TestSession_SearchErrorKeepsCards(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})

	submit(t, s, "Kyiv")
	submit(t, s, "Atlantis")

	state := s.State()
	assert.Equal(t, "city not found", state.Error)
	assert.Equal(t, []string{"Kyiv-UA"}, cardIDs(state.Cards))

	submit(t, s, "Lviv")
	assert.Empty(t, s.State().Error)
}

func TestSession_OlderSubmitResolvingLastIsDiscarded(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})

	release := fw.gate("current:kyiv")
	require.NoError(t, s.Submit("Kyiv"))
	require.NoError(t, s.Submit("Lviv"))

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"Lviv-UA"}, cardIDs(s.State().Cards))
	}, time.Second, 5*time.Millisecond)

	close(release)
	settle(t, s)

	state := s.State()
	assert.Equal(t, []string{"Lviv-UA"}, cardIDs(state.Cards))
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestSession_OlderFailedSubmitKeepsNewerError(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	submit(t, s, "Kyiv")

	release := fw.gate("current:lviv")
	require.NoError(t, s.Submit("Lviv"))
	require.NoError(t, s.Submit("Atlantis"))

	assert.Eventually(t, func() bool {
		return s.State().Error == "city not found"
	}, time.Second, 5*time.Millisecond)

	close(release)
	settle(t, s)

	state := s.State()
	assert.Equal(t, "city not found", state.Error)
	assert.Equal(t, []string{"Kyiv-UA"}, cardIDs(state.Cards))
}

func TestSession_VisibleCardsRespectLimit(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw, width: 900})

	for _, q := range []string{"Kyiv", "Lviv", "Odesa"} {
		submit(t, s, q)
	}

	state := s.State()
	assert.Equal(t, 2, state.FavoriteLimit)
	assert.Equal(t, []string{"Odesa-UA", "Lviv-UA"}, cardIDs(state.Cards))
	assert.Equal(t, 3, state.CardCount)

	_, err := s.ToggleFavorite(context.Background(), "Kyiv-UA")
	require.NoError(t, err)

	state = s.State()
	assert.Equal(t, []string{"Kyiv-UA", "Odesa-UA"}, cardIDs(state.Cards))
	assert.True(t, state.Cards[0].IsFavorite)
	assert.Equal(t, "1°C", state.Cards[0].Temperature)
	assert.Equal(t, "https://openweathermap.org/img/wn/01d@4x.png", state.Cards[0].IconURL)
	assert.Len(t, state.Cards[0].Actions, 6)
}

func TestSession_ToggleFavoriteTwiceRestoresSet(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	ctx := context.Background()

	submit(t, s, "Kyiv")
	submit(t, s, "Lviv")
	_, err := s.ToggleFavorite(ctx, "Kyiv-UA")
	require.NoError(t, err)
	before := s.State().Favorites

	pinned, err := s.ToggleFavorite(ctx, "Lviv-UA")
	require.NoError(t, err)
	assert.True(t, pinned)
	pinned, err = s.ToggleFavorite(ctx, "Lviv-UA")
	require.NoError(t, err)
	assert.False(t, pinned)

	assert.Equal(t, before, s.State().Favorites)

	_, err = s.ToggleFavorite(ctx, "Nowhere-XX")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSession_RefreshUpdatesCardFavoriteAndPanel(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	ctx := context.Background()

	submit(t, s, "Kyiv")
	submit(t, s, "Lviv")
	_, err := s.ToggleFavorite(ctx, "Kyiv-UA")
	require.NoError(t, err)
	require.NoError(t, s.TogglePanel(PanelQuickStats, "Kyiv-UA"))

	require.NoError(t, s.Refresh("Kyiv-UA"))
	settle(t, s)

	state := s.State()
	_, refreshed := fw.calls()
	assert.Equal(t, []string{"Kyiv"}, refreshed)
	assert.Equal(t, "11°C", state.Cards[0].Temperature)
	assert.Equal(t, 11.0, *s.favorites.Entries()[0].TemperatureC)
	assert.Equal(t, 11.0, *s.cards.Find("Kyiv-UA").TemperatureC)
	require.NotNil(t, state.Panels.QuickStats.Card)
	assert.Equal(t, "11°C", state.Panels.QuickStats.Card.Temperature)

	require.NoError(t, s.Refresh("Lviv-UA"))
	settle(t, s)
	assert.Equal(t, 12.0, *s.cards.Find("Lviv-UA").TemperatureC)
	assert.Len(t, s.favorites.Entries(), 1)
	assert.Equal(t, 11.0, *s.favorites.Entries()[0].TemperatureC)

	assert.True(t, apperrors.IsNotFoundError(s.Refresh("Nowhere-XX")))
}

func TestSession_DeleteClosesEveryPanelForTheCard(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	ctx := context.Background()

	submit(t, s, "Kyiv")
	_, err := s.ToggleFavorite(ctx, "Kyiv-UA")
	require.NoError(t, err)
	for _, kind := range PanelKinds {
		require.NoError(t, s.TogglePanel(kind, "Kyiv-UA"))
	}
	settle(t, s)

	s.Delete(ctx, "Kyiv-UA")

	state := s.State()
	assert.Empty(t, state.Cards)
	assert.Empty(t, state.Favorites)
	assert.False(t, state.Panels.QuickStats.Open)
	assert.False(t, state.Panels.Hourly.Open)
	assert.False(t, state.Panels.Weekly.Open)
}

func TestSession_QuickStatsOpensSynchronously(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})

	submit(t, s, "Kyiv")
	require.NoError(t, s.TogglePanel(PanelQuickStats, "Kyiv-UA"))

	panel := s.State().Panels.QuickStats
	assert.True(t, panel.Open)
	assert.False(t, panel.Loading)
	require.NotNil(t, panel.QuickStats)
	assert.Equal(t, "-", panel.QuickStats.Humidity)

	require.NoError(t, s.TogglePanel(PanelQuickStats, "Kyiv-UA"))
	assert.False(t, s.State().Panels.QuickStats.Open)

	assert.True(t, apperrors.IsValidationError(s.TogglePanel(PanelKind("radar"), "Kyiv-UA")))
	assert.True(t, apperrors.IsNotFoundError(s.TogglePanel(PanelHourly, "Nowhere-XX")))
}

func TestSession_StaleHourlyResultIsDiscarded(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	metrics := mocks.NewMetricsCollector(t)
	metrics.On("RecordSearch", mock.Anything).Maybe()
	metrics.On("RecordStaleResult", "hourly").Once()

	s := newTestSession(t, sessionOptions{weather: fw, metrics: metrics})
	submit(t, s, "Kyiv")
	submit(t, s, "Lviv")

	release := fw.gate("Kyiv-UA")
	require.NoError(t, s.TogglePanel(PanelHourly, "Kyiv-UA"))
	assert.True(t, s.State().Panels.Hourly.Loading)

	require.NoError(t, s.TogglePanel(PanelHourly, "Lviv-UA"))
	close(release)
	settle(t, s)

	panel := s.State().Panels.Hourly
	assert.Equal(t, "Lviv-UA", panel.OpenFor)
	assert.False(t, panel.Loading)
	require.NotNil(t, panel.Hourly)
	assert.Equal(t, []string{"Lviv-UA"}, panel.Hourly.Labels)
}

func TestSession_ClosingPanelDiscardsInFlightResult(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	submit(t, s, "Kyiv")

	release := fw.gate("Kyiv-UA")
	require.NoError(t, s.TogglePanel(PanelWeekly, "Kyiv-UA"))
	require.NoError(t, s.TogglePanel(PanelWeekly, "Kyiv-UA"))
	close(release)
	settle(t, s)

	panel := s.State().Panels.Weekly
	assert.False(t, panel.Open)
	assert.Nil(t, panel.Weekly)
}

func TestSession_PanelErrors(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	fw.hourlyErr = apperrors.NewMissingLocationError("hourly forecast is out of reach")
	fw.weeklyErr = errors.New("connection reset")
	s := newTestSession(t, sessionOptions{weather: fw})
	submit(t, s, "Kyiv")

	require.NoError(t, s.TogglePanel(PanelHourly, "Kyiv-UA"))
	require.NoError(t, s.TogglePanel(PanelWeekly, "Kyiv-UA"))
	settle(t, s)

	state := s.State()
	assert.Equal(t, "hourly forecast is out of reach", state.Panels.Hourly.Error)
	assert.Equal(t, "Weekly forecast fail", state.Panels.Weekly.Error)
	assert.Empty(t, state.Error)
}

func TestSession_WeeklyPanelRendersIcons(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw})
	submit(t, s, "Kyiv")

	require.NoError(t, s.TogglePanel(PanelWeekly, "Kyiv-UA"))
	settle(t, s)

	panel := s.State().Panels.Weekly
	require.Len(t, panel.Weekly, 1)
	assert.Equal(t, "https://openweathermap.org/img/wn/01d@2x.png", panel.Weekly[0].IconURL)
	assert.Equal(t, ports.WeeklySourceDaily, panel.Source)
}

func storedFavoriteIDs(t *testing.T, storage ports.KeyValueStore) []string {
	t.Helper()
	data, err := storage.Get(context.Background(), testSessionID, ports.FavoritesStorageKey)
	require.NoError(t, err)
	var entries []weather.Snapshot
	require.NoError(t, json.Unmarshal(data, &entries))
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSession_ShrinkTruncatesPersistedFavorites(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	storage := database.NewMemoryKeyValueStore()
	s := newTestSession(t, sessionOptions{weather: fw, storage: storage, width: 1200})
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "olena"))
	for _, q := range []string{"Kyiv", "Lviv", "Odesa"} {
		submit(t, s, q)
		_, err := s.ToggleFavorite(ctx, weather.DeriveID(q, "UA"))
		require.NoError(t, err)
	}
	require.Len(t, s.State().Favorites, 3)

	assert.Equal(t, 1, s.Resize(ctx, 500))

	state := s.State()
	assert.Equal(t, []string{"Odesa-UA"}, state.Favorites)
	assert.Equal(t, []string{"Odesa-UA"}, cardIDs(state.Cards))
	assert.Equal(t, []string{"Odesa-UA"}, storedFavoriteIDs(t, storage))
}

func TestSession_LoginRestoresFavorites(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	storage := database.NewMemoryKeyValueStore()
	ctx := context.Background()
	doc := `[{"id": "Paris-FR", "name": "Paris", "country": "FR", "temp": 14}, {"name": "Rome", "country": "IT"}]`
	require.NoError(t, storage.Put(ctx, testSessionID, ports.FavoritesStorageKey, []byte(doc)))

	s := newTestSession(t, sessionOptions{weather: fw, storage: storage})
	submit(t, s, "Kyiv")

	require.NoError(t, s.Login(ctx, " olena "))

	state := s.State()
	assert.True(t, state.SignedIn)
	assert.Equal(t, "olena", state.User)
	assert.Equal(t, []string{"Paris-FR", "Rome-IT"}, state.Favorites)
	assert.Equal(t, []string{"Paris-FR", "Rome-IT", "Kyiv-UA"}, cardIDs(state.Cards))
	assert.ElementsMatch(t, []string{"Paris-FR", "Rome-IT"}, fw.seeded)

	stored, err := storage.Get(ctx, testSessionID, ports.UserStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "olena"}`, string(stored))

	assert.True(t, apperrors.IsValidationError(s.Login(ctx, "  ")))
}

func TestSession_LoginKeepsFavoritesPinnedWhileSignedOut(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	storage := database.NewMemoryKeyValueStore()
	ctx := context.Background()

	s := newTestSession(t, sessionOptions{weather: fw, storage: storage})
	submit(t, s, "Kyiv")
	_, err := s.ToggleFavorite(ctx, "Kyiv-UA")
	require.NoError(t, err)

	require.NoError(t, s.Login(ctx, "olena"))
	assert.Equal(t, []string{"Kyiv-UA"}, s.State().Favorites)
	assert.Equal(t, []string{"Kyiv-UA"}, storedFavoriteIDs(t, storage))

	// Same device reconnecting
	s.Close()
	reopened := newTestSession(t, sessionOptions{weather: fw, storage: storage})
	reopened.Restore(ctx)

	state := reopened.State()
	assert.True(t, state.SignedIn)
	assert.Equal(t, []string{"Kyiv-UA"}, state.Favorites)
}

func TestSession_LogoutStopsPersistence(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	storage := database.NewMemoryKeyValueStore()
	s := newTestSession(t, sessionOptions{weather: fw, storage: storage})
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "olena"))
	submit(t, s, "Kyiv")
	_, err := s.ToggleFavorite(ctx, "Kyiv-UA")
	require.NoError(t, err)

	s.Logout(ctx)
	submit(t, s, "Lviv")
	_, err = s.ToggleFavorite(ctx, "Lviv-UA")
	require.NoError(t, err)

	state := s.State()
	assert.False(t, state.SignedIn)
	assert.Equal(t, []string{"Lviv-UA", "Kyiv-UA"}, state.Favorites)
	assert.Equal(t, []string{"Kyiv-UA"}, storedFavoriteIDs(t, storage))

	_, err = storage.Get(ctx, testSessionID, ports.UserStorageKey)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSession_SettleHonorsContext(t *testing.T) {
	fw := newFakeWeather(testCities()...)
	s := newTestSession(t, sessionOptions{weather: fw, debounce: time.Hour})

	s.SetQuery("Kyiv")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Settle(ctx), context.DeadlineExceeded)

	s.Close()
	settle(t, s)
}
