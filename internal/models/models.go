package models

import (
	"database/sql"
	"time"
)

type UnitStatus string

const (
	UnitActive    UnitStatus = "active"
	UnitCritical  UnitStatus = "critical"
	UnitDormant   UnitStatus = "dormant"
	UnitHarvested UnitStatus = "harvested"
)

type SystemKind string

const (
	SystemSoil  SystemKind = "soil"
	SystemHydro SystemKind = "hydroponic"
)

// CultivationUnit is a single tray or hydroponic system under cultivation.
// Day-keyed accumulation runs from PlantedDate to HarvestedDate (or today).
type CultivationUnit struct {
	ID            string
	OwnerID       string
	Name          string
	Crop          string
	System        SystemKind
	Topology      Topology // meaningful only for hydroponic units
	Latitude      float64
	Longitude     float64
	PlantedDate   time.Time // UTC midnight
	HarvestedDate sql.NullTime
	Status        UnitStatus
	CreatedAt     time.Time
}

// EndDate is the exclusive upper bound of the unit's day range: the harvest
// date if harvested, otherwise the caller's notion of today.
func (u CultivationUnit) EndDate(now time.Time) time.Time {
	if u.Status == UnitHarvested && u.HarvestedDate.Valid {
		return DayUTC(u.HarvestedDate.Time)
	}
	return DayUTC(now)
}

// DailyLogEntry is one observation row for a unit and calendar day. Multiple
// rows may exist for the same (unit, day); the newest CreatedAt wins.
type DailyLogEntry struct {
	ID           int64
	UnitID       string
	Day          time.Time // UTC midnight
	PH           sql.NullFloat64
	EC           sql.NullFloat64
	Temp         sql.NullFloat64
	Humidity     sql.NullFloat64
	WaterTemp    sql.NullFloat64
	Telemetry    SubsystemTelemetry
	IsBackfilled bool
	Actions      []string
	Notes        sql.NullString
	CreatedAt    time.Time
}

// HasSensorData reports whether the entry carries direct instrument readings,
// as opposed to a manual estimate or a weather-synthesized ghost row.
func (e DailyLogEntry) HasSensorData() bool {
	if e.IsBackfilled {
		return false
	}
	return e.PH.Valid || e.EC.Valid || e.WaterTemp.Valid
}

// WeatherSample is one day of historical weather from the external archive.
type WeatherSample struct {
	Date           time.Time // UTC midnight
	TempMin        float64
	TempMax        float64
	SolarRadiation sql.NullFloat64
}

// Midpoint is the daily temperature used when synthesizing a ghost log.
func (w WeatherSample) Midpoint() float64 {
	return (w.TempMax + w.TempMin) / 2
}

// HarvestRecord closes out a unit's lifecycle.
type HarvestRecord struct {
	ID          int64
	UnitID      string
	HarvestDate time.Time
	YieldGrams  sql.NullFloat64
	Quality     sql.NullString
	Notes       sql.NullString
	CreatedAt   time.Time
}

// HealthBreakdown exposes per-factor sub-scores for explainability. A nil
// factor means the inputs to score it were absent, which is distinct from a
// low score.
type HealthBreakdown struct {
	PH          *float64 `json:"ph,omitempty"`
	EC          *float64 `json:"ec,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Stability   *float64 `json:"stability,omitempty"`
}

// DerivedState is the engine's computed view of a unit. It is recomputed on
// every read and never stored as ground truth.
type DerivedState struct {
	UnitID         string          `json:"unit_id"`
	Crop           string          `json:"crop"`
	DaysElapsed    int             `json:"days_elapsed"`
	GDDAccumulated float64         `json:"gdd_accumulated"`
	GDDProgressPct float64         `json:"gdd_progress_pct"`
	HealthScore    float64         `json:"health_score"`
	HealthReasons  []string        `json:"health_reasons"`
	Breakdown      HealthBreakdown `json:"breakdown"`
	MaturityPct    int             `json:"maturity_pct"`
	MissingDays    int             `json:"missing_days"`
	BackfilledDays int             `json:"backfilled_days"`
	NeedsCatchup   bool            `json:"needs_catchup"`
	RecentActions  []string        `json:"recent_actions,omitempty"`
	LastLogDate    *time.Time      `json:"last_log_date,omitempty"`
}

// DayUTC truncates t to its calendar day at UTC midnight. All day-keyed maps
// and ranges in the engine use this normalization.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a day for use as a map or database key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
