// Package gaps walks a unit's lifetime day by day, classifying each day as
// logged, backfillable from historical weather, or missing, and synthesizing
// deterministic ghost log entries for the backfillable days.
package gaps

import (
	"database/sql"
	"time"

	"github.com/seedtray/growlog/internal/models"
)

type DayStatus string

const (
	StatusLogged     DayStatus = "logged"
	StatusBackfilled DayStatus = "backfilled"
	StatusMissing    DayStatus = "missing"
)

// DayState is the classification of a single day in the walk.
type DayState struct {
	Day    time.Time `json:"day"`
	Status DayStatus `json:"status"`
}

// Report is the outcome of a gap walk. Synthesized holds proposed ghost rows
// for the BACKFILLED days; committing them to the store is the caller's
// decision, the walk itself has no side effects.
type Report struct {
	Days           []DayState
	Synthesized    []models.DailyLogEntry
	MissingDays    int
	BackfilledDays int
	LoggedDays     int
	NeedsCatchup   bool
}

// DateRange is a half-open [Start, End) span of days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Detect walks [planted, end) where end is the harvest date for harvested
// units and the injected now otherwise. The current open day sits outside the
// range, so an as-yet-unlogged today never counts as missing.
//
// For each day: a real log wins outright; otherwise a weather sample for that
// exact date produces a synthesized ghost entry; otherwise the day is missing.
// The walk is deterministic: identical inputs produce identical reports,
// ghost rows included.
func Detect(unit models.CultivationUnit, logs []models.DailyLogEntry, weather map[string]models.WeatherSample, now time.Time) Report {
	start := models.DayUTC(unit.PlantedDate)
	end := unit.EndDate(now)

	byDay := models.AuthoritativeByDay(logs)

	var report Report
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		key := models.DateKey(day)

		if entry, ok := byDay[key]; ok {
			// Committed ghost rows stay classified as backfilled so the
			// caller can still tell estimated days from observed ones.
			if entry.IsBackfilled {
				report.Days = append(report.Days, DayState{Day: day, Status: StatusBackfilled})
				report.BackfilledDays++
			} else {
				report.Days = append(report.Days, DayState{Day: day, Status: StatusLogged})
				report.LoggedDays++
			}
			continue
		}

		if sample, ok := weather[key]; ok {
			report.Days = append(report.Days, DayState{Day: day, Status: StatusBackfilled})
			report.Synthesized = append(report.Synthesized, Synthesize(unit, day, sample))
			report.BackfilledDays++
			continue
		}

		report.Days = append(report.Days, DayState{Day: day, Status: StatusMissing})
		report.MissingDays++
	}

	report.NeedsCatchup = report.MissingDays > 0
	return report
}

// Synthesize builds a ghost log entry for one day from a weather sample. The
// daily temperature is the max/min midpoint; fields with no weather analogue
// stay null rather than taking invented defaults. CreatedAt is left zero so
// no wall-clock value leaks into the day-keyed content; the store stamps it
// at commit time.
func Synthesize(unit models.CultivationUnit, day time.Time, sample models.WeatherSample) models.DailyLogEntry {
	return models.DailyLogEntry{
		UnitID:       unit.ID,
		Day:          models.DayUTC(day),
		Temp:         sql.NullFloat64{Float64: sample.Midpoint(), Valid: true},
		IsBackfilled: true,
		Notes:        sql.NullString{String: "backfilled from historical weather", Valid: true},
	}
}

// MissingRanges coalesces the report's missing days into contiguous
// half-open ranges, the shape the weather collaborator is queried in.
func (r Report) MissingRanges() []DateRange {
	var ranges []DateRange
	for _, d := range r.Days {
		if d.Status != StatusMissing {
			continue
		}
		if n := len(ranges); n > 0 && ranges[n-1].End.Equal(d.Day) {
			ranges[n-1].End = d.Day.AddDate(0, 0, 1)
			continue
		}
		ranges = append(ranges, DateRange{Start: d.Day, End: d.Day.AddDate(0, 0, 1)})
	}
	return ranges
}

// UnionRanges merges overlapping or adjacent ranges across several reports
// into the minimal covering set, so one archive query per location covers
// every unit's gaps.
func UnionRanges(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start.Before(sorted[j-1].Start); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	merged := []DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) { // overlapping or adjacent
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
