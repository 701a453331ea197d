package dashboard

import (
	"weatherdash.app/internal/core/weather"
	"weatherdash.app/internal/ports"
	"weatherdash.app/pkg/errors"
)

// PanelKind names one of the detail panels a card can open
type PanelKind string

const (
	PanelQuickStats PanelKind = "quick_stats"
	PanelHourly     PanelKind = "hourly"
	PanelWeekly     PanelKind = "weekly"
)

// PanelKinds lists every panel in display order
var PanelKinds = []PanelKind{PanelQuickStats, PanelHourly, PanelWeekly}

func (k PanelKind) IsValid() bool {
	switch k {
	case PanelQuickStats, PanelHourly, PanelWeekly:
		return true
	default:
		return false
	}
}

func (k PanelKind) String() string {
	return string(k)
}

// ParsePanelKind converts a path segment into a panel kind
func ParsePanelKind(s string) (PanelKind, error) {
	k := PanelKind(s)
	if !k.IsValid() {
		return "", errors.NewValidationError("unknown panel " + s)
	}
	return k, nil
}

// fallbackMessage is shown when a failed fetch carries no message of its own
func (k PanelKind) fallbackMessage() string {
	switch k {
	case PanelHourly:
		return "Hourly Forecast Fail"
	case PanelWeekly:
		return "Weekly forecast fail"
	default:
		return ""
	}
}

// panelState is a single-slot panel: at most one card has it open.
// generation changes on every open and close, so a fetch started for an
// earlier selection can tell it is stale.
type panelState struct {
	kind       PanelKind
	openFor    string
	card       *weather.Snapshot
	loading    bool
	err        string
	hourly     *ports.HourlyForecast
	weekly     *ports.WeeklyForecast
	generation uint64
}

func (p *panelState) isOpen() bool {
	return p.openFor != ""
}

// open selects card and returns the token its fetch must present
func (p *panelState) open(card *weather.Snapshot) uint64 {
	p.generation++
	p.openFor = card.ID
	p.card = card
	p.hourly = nil
	p.weekly = nil
	p.err = ""
	p.loading = p.kind != PanelQuickStats
	return p.generation
}

func (p *panelState) close() {
	p.generation++
	p.openFor = ""
	p.card = nil
	p.hourly = nil
	p.weekly = nil
	p.err = ""
	p.loading = false
}

func (p *panelState) current(token uint64) bool {
	return p.generation == token
}
