// Package project orchestrates the engine for one cultivation unit: crop
// profile resolution, gap walk, thermal accumulation, health scoring and the
// maturity blend. Project is a pure function of its inputs; the only clock it
// sees is the injected now, so identical inputs always reproduce identical
// state.
package project

import (
	"fmt"
	"time"

	"github.com/seedtray/growlog/internal/cropdb"
	"github.com/seedtray/growlog/internal/gaps"
	"github.com/seedtray/growlog/internal/health"
	"github.com/seedtray/growlog/internal/maturity"
	"github.com/seedtray/growlog/internal/models"
	"github.com/seedtray/growlog/internal/thermal"
)

// stabilityWindowDays bounds how many recent entries feed the stability
// sub-score.
const stabilityWindowDays = 7

// Project computes the derived state for one unit from its log history and
// the weather cache. It never mutates its inputs and performs no I/O.
func Project(unit models.CultivationUnit, logs []models.DailyLogEntry, weather map[string]models.WeatherSample, now time.Time) (models.DerivedState, error) {
	profile, err := cropdb.Lookup(unit.Crop)
	if err != nil {
		return models.DerivedState{}, fmt.Errorf("project unit %s: %w", unit.ID, err)
	}

	report := gaps.Detect(unit, logs, weather, now)
	byDay := models.AuthoritativeByDay(logs)

	// Effective per-day entries: committed rows plus ghost rows the walk
	// synthesized for weather-covered days.
	effective := make(map[string]models.DailyLogEntry, len(byDay)+len(report.Synthesized))
	for key, e := range byDay {
		effective[key] = e
	}
	for _, ghost := range report.Synthesized {
		effective[models.DateKey(ghost.Day)] = ghost
	}

	state := models.DerivedState{
		UnitID:         unit.ID,
		Crop:           unit.Crop,
		DaysElapsed:    len(report.Days),
		MissingDays:    report.MissingDays,
		BackfilledDays: report.BackfilledDays,
		NeedsCatchup:   report.NeedsCatchup,
	}

	// Thermal accumulation over logged and backfilled days, in day order.
	// Logged entries carry a single daily temperature, so the same value
	// feeds both ends of the GDD formula; ghost days reduce to the weather
	// midpoint the same way. Days with no temperature contribute nothing.
	var daily []float64
	for _, d := range report.Days {
		if d.Status == gaps.StatusMissing {
			continue
		}
		entry, ok := effective[models.DateKey(d.Day)]
		if !ok || !entry.Temp.Valid {
			continue
		}
		t := entry.Temp.Float64
		daily = append(daily, thermal.DailyGDD(t, t, profile.BaseTempC))
	}
	state.GDDAccumulated = thermal.Accumulate(daily)
	state.GDDProgressPct = maturity.Progress(state.GDDAccumulated, profile.GDDTarget)

	// Health from the most recent authoritative entry, with a short window
	// of preceding entries for the stability sub-score.
	recent := recentEntries(report.Days, effective)
	if len(recent) == 0 {
		state.HealthScore = 0
		state.HealthReasons = []string{"no observations recorded for this unit"}
	} else {
		latest := recent[len(recent)-1]
		scored := health.Score(health.Input{
			Entry:       latest,
			Window:      recent,
			UnitAgeDays: len(report.Days),
			System:      unit.System,
			Profile:     profile,
		})
		state.HealthScore = scored.Score
		state.HealthReasons = scored.Reasons
		state.Breakdown = scored.Breakdown
	}

	state.MaturityPct = maturity.Blend(state.GDDProgressPct, state.HealthScore)

	// Interventions from the recent window, oldest first. Ghost rows never
	// carry actions, so only grower-entered logs contribute.
	for _, e := range recent {
		state.RecentActions = append(state.RecentActions, e.Actions...)
	}

	if last, ok := lastRealLogDay(byDay); ok {
		state.LastLogDate = &last
	}

	return state, nil
}

// recentEntries returns the trailing window of effective entries in day
// order, ending at the most recent logged or backfilled day.
func recentEntries(days []gaps.DayState, effective map[string]models.DailyLogEntry) []models.DailyLogEntry {
	var entries []models.DailyLogEntry
	for _, d := range days {
		if e, ok := effective[models.DateKey(d.Day)]; ok {
			entries = append(entries, e)
		}
	}
	if len(entries) > stabilityWindowDays {
		entries = entries[len(entries)-stabilityWindowDays:]
	}
	return entries
}

// lastRealLogDay finds the newest non-ghost entry's day. Ghost rows are
// excluded: "last logged" answers when the grower last observed the unit.
func lastRealLogDay(byDay map[string]models.DailyLogEntry) (time.Time, bool) {
	var last time.Time
	found := false
	for _, e := range byDay {
		if e.IsBackfilled {
			continue
		}
		if !found || e.Day.After(last) {
			last = e.Day
			found = true
		}
	}
	return last, found
}
