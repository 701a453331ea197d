package dashboard

import "weatherdash.app/internal/core/weather"

// CardList holds search results, most recently added or updated first
type CardList []*weather.Snapshot

func (l CardList) indexOf(id string) int {
	for i, c := range l {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the card with id, or nil
func (l CardList) Find(id string) *weather.Snapshot {
	if i := l.indexOf(id); i >= 0 {
		return l[i]
	}
	return nil
}

// MergeFront puts snapshot first, dropping any older card with the same id
func (l CardList) MergeFront(snapshot *weather.Snapshot) CardList {
	next := make(CardList, 0, len(l)+1)
	next = append(next, snapshot)
	for _, c := range l {
		if c.ID != snapshot.ID {
			next = append(next, c)
		}
	}
	return next
}

// Replace swaps the card with the same id in place, keeping order
func (l CardList) Replace(snapshot *weather.Snapshot) CardList {
	next := make(CardList, len(l))
	for i, c := range l {
		if c.ID == snapshot.ID {
			next[i] = snapshot
		} else {
			next[i] = c
		}
	}
	return next
}

// Upsert replaces the card with the same id in place or prepends it
func (l CardList) Upsert(snapshot *weather.Snapshot) CardList {
	if l.indexOf(snapshot.ID) >= 0 {
		return l.Replace(snapshot)
	}
	return l.PrependMissing(snapshot)
}

// PrependMissing adds the snapshots whose ids are not present yet, ahead of
// the existing cards and in the given order
func (l CardList) PrependMissing(snapshots ...*weather.Snapshot) CardList {
	next := make(CardList, 0, len(l)+len(snapshots))
	for _, s := range snapshots {
		if l.indexOf(s.ID) < 0 && next.indexOf(s.ID) < 0 {
			next = append(next, s)
		}
	}
	return append(next, l...)
}

// Remove drops the card with id
func (l CardList) Remove(id string) CardList {
	next := make(CardList, 0, len(l))
	for _, c := range l {
		if c.ID != id {
			next = append(next, c)
		}
	}
	return next
}

// VisibleCards projects what the dashboard shows: favorites first, then
// other cards until limit is reached
func VisibleCards(favorites []*weather.Snapshot, cards CardList, limit int) []*weather.Snapshot {
	if len(favorites) > limit {
		favorites = favorites[:limit]
	}
	visible := make([]*weather.Snapshot, 0, limit)
	visible = append(visible, favorites...)
	if len(visible) >= limit {
		return visible
	}

	pinned := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		pinned[f.ID] = true
	}
	for _, c := range cards {
		if len(visible) >= limit {
			break
		}
		if !pinned[c.ID] {
			visible = append(visible, c)
		}
	}
	return visible
}
