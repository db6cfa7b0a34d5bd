package models

import "sort"

// AuthoritativeByDay reduces a unit's log rows to at most one entry per
// calendar day. Among duplicates the most recently created row wins; rows are
// never averaged. Every consumer of per-day logs goes through this index so
// the latest-write-wins rule cannot drift between call sites.
func AuthoritativeByDay(entries []DailyLogEntry) map[string]DailyLogEntry {
	byDay := make(map[string]DailyLogEntry, len(entries))
	for _, e := range entries {
		key := DateKey(e.Day)
		current, ok := byDay[key]
		if !ok || newer(e, current) {
			byDay[key] = e
		}
	}
	return byDay
}

// AuthoritativeForDay returns the winning entry for one day, if any.
func AuthoritativeForDay(entries []DailyLogEntry, day string) (DailyLogEntry, bool) {
	e, ok := AuthoritativeByDay(entries)[day]
	return e, ok
}

// SortedDays returns the index's days in ascending order, for deterministic
// iteration.
func SortedDays(byDay map[string]DailyLogEntry) []string {
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

func newer(a, b DailyLogEntry) bool {
	// A ghost row never displaces a real observation, whatever the
	// timestamps say.
	if a.IsBackfilled != b.IsBackfilled {
		return !a.IsBackfilled
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	// Equal timestamps fall back to insertion order.
	return a.ID > b.ID
}
