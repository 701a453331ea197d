package favorites

import (
	"encoding/json"
	"time"

	"weatherdash.app/internal/core/weather"
)

// Viewport breakpoints in CSS pixels
const (
	tabletMinWidth  = 768
	desktopMinWidth = 1024
)

// LimitForWidth returns how many favorites fit a viewport of the given width
func LimitForWidth(width int) int {
	if width < tabletMinWidth {
		return 1
	}
	if width < desktopMinWidth {
		return 2
	}
	return 3
}

// storedEntry is one persisted favorite before normalization.
// Every field is optional; older clients wrote fewer of them.
type storedEntry map[string]interface{}

// normalize rebuilds a snapshot from a persisted entry.
// Entries without an id, and without a name and country to derive one, are dropped.
func (e storedEntry) normalize(now time.Time) (*weather.Snapshot, bool) {
	id := e.str("id")
	name := e.str("name")
	country := e.str("country")
	if id == "" && name != "" && country != "" {
		id = weather.DeriveID(name, country)
	}
	if id == "" {
		return nil, false
	}

	temp := 0.0
	if v, ok := e.num("temp"); ok {
		temp = v
	}

	snapshot := &weather.Snapshot{
		ID:           id,
		Name:         name,
		Country:      country,
		TemperatureC: &temp,
		FeelsLikeC:   e.numPtr("feels_like"),
		TempMinC:     e.numPtr("temp_min"),
		TempMaxC:     e.numPtr("temp_max"),
		Description:  e.str("description"),
		Icon:         e.str("icon"),
		FetchedAt:    now.UnixMilli(),
	}

	raw, hasRaw := e["raw"].(map[string]interface{})
	if hasRaw {
		if data, err := json.Marshal(raw); err == nil {
			snapshot.Raw = data
		}
	}

	switch {
	case e.has("timezone"):
		v, _ := e.num("timezone")
		snapshot.UTCOffsetSeconds = int(v)
	case hasRaw && storedEntry(raw).has("timezone"):
		v, _ := storedEntry(raw).num("timezone")
		snapshot.UTCOffsetSeconds = int(v)
	}

	if v, ok := e.num("fetchedAt"); ok && v != 0 {
		snapshot.FetchedAt = int64(v)
	}

	return snapshot, true
}

func (e storedEntry) str(key string) string {
	s, _ := e[key].(string)
	return s
}

func (e storedEntry) num(key string) (float64, bool) {
	v, ok := e[key].(float64)
	return v, ok
}

func (e storedEntry) numPtr(key string) *float64 {
	v, ok := e.num(key)
	if !ok {
		return nil
	}
	return &v
}

// has reports a numeric value under key
func (e storedEntry) has(key string) bool {
	_, ok := e.num(key)
	return ok
}

// decodeEntries parses the persisted favorites document.
// Anything that is not an array yields no entries.
func decodeEntries(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeEntry(item json.RawMessage) (storedEntry, bool) {
	var entry storedEntry
	if err := json.Unmarshal(item, &entry); err != nil || entry == nil {
		return nil, false
	}
	return entry, true
}
