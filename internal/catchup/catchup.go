// Package catchup runs the ghost sync pass: it scans active units for gap
// days, fetches the historical weather those days need, and commits the
// synthesized backfill rows. A failed fetch degrades gracefully, the affected
// days simply stay missing until the next pass.
package catchup

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seedtray/growlog/internal/gaps"
	"github.com/seedtray/growlog/internal/metrics"
	"github.com/seedtray/growlog/internal/models"
	"github.com/seedtray/growlog/internal/store"
	"github.com/seedtray/growlog/internal/weather"
)

// DefaultSchedule runs the nightly pass at 02:00, after the weather archive
// has settled the previous day.
const DefaultSchedule = "0 2 * * *"

type Runner struct {
	store   *store.Store
	weather *weather.Client
}

func NewRunner(st *store.Store, wc *weather.Client) *Runner {
	return &Runner{store: st, weather: wc}
}

// Stats summarizes one catchup pass.
type Stats struct {
	UnitsScanned    int
	RangesFetched   int
	SamplesMerged   int
	GhostsCommitted int
	FetchErrors     int
}

type location struct {
	lat float64
	lon float64
}

// RunOnce executes a full catchup pass at the given reference time. Gap
// ranges are unioned per location before fetching, so co-located units share
// one archive query. Fetch failures for one location are logged and skipped;
// the pass only errors when the store itself fails.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	units, err := r.store.ListActiveUnits()
	if err != nil {
		metrics.CatchupRuns.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("list active units: %w", err)
	}
	stats.UnitsScanned = len(units)

	missingByLoc := make(map[location][]gaps.DateRange)
	for _, unit := range units {
		report, err := r.walkUnit(unit, now)
		if err != nil {
			metrics.CatchupRuns.WithLabelValues("error").Inc()
			return stats, err
		}
		if !report.NeedsCatchup {
			continue
		}
		loc := locationOf(unit)
		missingByLoc[loc] = append(missingByLoc[loc], report.MissingRanges()...)
	}

	for loc, ranges := range missingByLoc {
		for _, rng := range gaps.UnionRanges(ranges) {
			samples, err := r.weather.FetchHistorical(ctx, loc.lat, loc.lon, rng.Start, rng.End)
			if err != nil {
				log.Printf("catchup: fetch %.2f,%.2f %s..%s failed: %v",
					loc.lat, loc.lon, models.DateKey(rng.Start), models.DateKey(rng.End), err)
				stats.FetchErrors++
				continue
			}
			stats.RangesFetched++

			merged, err := r.store.MergeWeather(loc.lat, loc.lon, samples)
			if err != nil {
				metrics.CatchupRuns.WithLabelValues("error").Inc()
				return stats, fmt.Errorf("merge weather: %w", err)
			}
			stats.SamplesMerged += merged
		}
	}

	// Re-walk against the refreshed cache and commit what is now backfillable.
	for _, unit := range units {
		report, err := r.walkUnit(unit, now)
		if err != nil {
			metrics.CatchupRuns.WithLabelValues("error").Inc()
			return stats, err
		}
		if len(report.Synthesized) == 0 {
			continue
		}
		n, err := r.store.InsertLogs(report.Synthesized)
		if err != nil {
			metrics.CatchupRuns.WithLabelValues("error").Inc()
			return stats, fmt.Errorf("commit ghost rows for %s: %w", unit.ID, err)
		}
		if n > 0 {
			log.Printf("catchup: committed %d ghost rows for unit %s", n, unit.ID)
		}
		stats.GhostsCommitted += n
		metrics.GhostRowsCommitted.Add(float64(n))
	}

	metrics.CatchupRuns.WithLabelValues("ok").Inc()
	log.Printf("catchup: scanned %d units, fetched %d ranges, merged %d samples, committed %d ghosts",
		stats.UnitsScanned, stats.RangesFetched, stats.SamplesMerged, stats.GhostsCommitted)
	return stats, nil
}

func (r *Runner) walkUnit(unit models.CultivationUnit, now time.Time) (gaps.Report, error) {
	logs, err := r.store.ListLogs(unit.ID)
	if err != nil {
		return gaps.Report{}, fmt.Errorf("list logs for %s: %w", unit.ID, err)
	}
	cached, err := r.store.GetWeather(unit.Latitude, unit.Longitude, models.DayUTC(unit.PlantedDate), unit.EndDate(now))
	if err != nil {
		return gaps.Report{}, fmt.Errorf("read weather cache for %s: %w", unit.ID, err)
	}
	return gaps.Detect(unit, logs, cached, now), nil
}

// Schedule starts a cron-driven nightly pass and returns the running cron so
// the caller can stop it on shutdown.
func (r *Runner) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx, time.Now().UTC()); err != nil {
			log.Printf("catchup: scheduled pass failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule catchup: %w", err)
	}
	c.Start()
	return c, nil
}

// locationOf groups units by the same 2-decimal grid the weather cache is
// keyed on, so cache reads and writes agree on the coordinates.
func locationOf(u models.CultivationUnit) location {
	return location{
		lat: math.Round(u.Latitude*100) / 100,
		lon: math.Round(u.Longitude*100) / 100,
	}
}
