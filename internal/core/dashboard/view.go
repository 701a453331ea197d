package dashboard

import (
	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/ports"
)

// Card actions a client may request
const (
	ActionRefresh        = "refresh"
	ActionToggleFavorite = "toggle_favorite"
	ActionDelete         = "delete"
	ActionOpenHourly     = "open_hourly"
	ActionOpenWeekly     = "open_weekly"
	ActionOpenQuickStats = "open_quick_stats"
)

var cardActions = []string{
	ActionRefresh,
	ActionToggleFavorite,
	ActionDelete,
	ActionOpenHourly,
	ActionOpenWeekly,
	ActionOpenQuickStats,
}

// CardView is the rendered summary of one weather card
type CardView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Country      string   `json:"country"`
	Temperature  string   `json:"temperature"`
	TemperatureC *float64 `json:"temperature_c"`
	Description  string   `json:"description"`
	Icon         string   `json:"icon,omitempty"`
	IconURL      string   `json:"icon_url,omitempty"`
	IsFavorite   bool     `json:"is_favorite"`
	Actions      []string `json:"actions"`
}

// RenderCard is a pure function of a snapshot and its favorite flag
func RenderCard(s *weather.Snapshot, isFavorite bool, iconBaseURL string) CardView {
	actions := make([]string, len(cardActions))
	copy(actions, cardActions)
	return CardView{
		ID:           s.ID,
		Name:         s.Name,
		Country:      s.Country,
		Temperature:  weather.RoundedTemperature(s.TemperatureC),
		TemperatureC: s.TemperatureC,
		Description:  s.Description,
		Icon:         s.Icon,
		IconURL:      weather.IconURL(iconBaseURL, s.Icon, "4x"),
		IsFavorite:   isFavorite,
		Actions:      actions,
	}
}

// WeeklyDayView is one weekly row with its icon resolved
type WeeklyDayView struct {
	ports.DailyForecast
	IconURL string `json:"icon_url,omitempty"`
}

// PanelView is the rendered state of one detail panel
type PanelView struct {
	Kind       PanelKind             `json:"kind"`
	Open       bool                  `json:"open"`
	OpenFor    string                `json:"open_for,omitempty"`
	Card       *CardView             `json:"card,omitempty"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error,omitempty"`
	QuickStats *weather.QuickStats   `json:"quick_stats,omitempty"`
	Hourly     *ports.HourlyForecast `json:"hourly,omitempty"`
	Weekly     []WeeklyDayView       `json:"weekly,omitempty"`
	Source     string                `json:"source,omitempty"`
}

// PanelsView groups the three panels
type PanelsView struct {
	QuickStats PanelView `json:"quick_stats"`
	Hourly     PanelView `json:"hourly"`
	Weekly     PanelView `json:"weekly"`
}

// State is everything a client needs to draw the dashboard
type State struct {
	SessionID     string     `json:"session_id"`
	Query         string     `json:"query"`
	Loading       bool       `json:"loading"`
	Error         string     `json:"error,omitempty"`
	SignedIn      bool       `json:"signed_in"`
	User          string     `json:"user,omitempty"`
	ViewportWidth int        `json:"viewport_width"`
	FavoriteLimit int        `json:"favorite_limit"`
	Favorites     []string   `json:"favorites"`
	Cards         []CardView `json:"cards"`
	CardCount     int        `json:"card_count"`
	Panels        PanelsView `json:"panels"`
}

func renderPanel(p *panelState, isFavorite func(string) bool, iconBaseURL string) PanelView {
	view := PanelView{
		Kind:    p.kind,
		Open:    p.isOpen(),
		OpenFor: p.openFor,
		Loading: p.loading,
		Error:   p.err,
	}
	if !p.isOpen() {
		return view
	}

	card := RenderCard(p.card, isFavorite(p.card.ID), iconBaseURL)
	view.Card = &card

	switch p.kind {
	case PanelQuickStats:
		stats := weather.BuildQuickStats(p.card)
		view.QuickStats = &stats
	case PanelHourly:
		view.Hourly = p.hourly
	case PanelWeekly:
		if p.weekly != nil {
			view.Source = p.weekly.Source
			view.Weekly = make([]WeeklyDayView, len(p.weekly.Days))
			for i, d := range p.weekly.Days {
				view.Weekly[i] = WeeklyDayView{
					DailyForecast: d,
					IconURL:       weather.IconURL(iconBaseURL, d.Icon, "2x"),
				}
			}
		}
	}
	return view
}
