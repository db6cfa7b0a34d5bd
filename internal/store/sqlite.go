// Package store persists cultivation units, daily logs, the historical
// weather cache and harvest records in SQLite. The engine itself never talks
// to the store; callers load rows, run the pure projection, and commit any
// proposed ghost rows back through InsertLogs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/seedtray/growlog/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertUnit inserts or updates a cultivation unit by id.
func (s *Store) UpsertUnit(u models.CultivationUnit) error {
	_, err := s.db.Exec(`
		INSERT INTO cultivation_units (id, owner_id, name, crop, system, topology, latitude, longitude, planted_date, harvested_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			crop = excluded.crop,
			system = excluded.system,
			topology = excluded.topology,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			planted_date = excluded.planted_date,
			harvested_date = excluded.harvested_date,
			status = excluded.status
	`, u.ID, u.OwnerID, u.Name, u.Crop, string(u.System), string(u.Topology),
		u.Latitude, u.Longitude, models.DayUTC(u.PlantedDate), u.HarvestedDate, string(u.Status))
	return err
}

const unitColumns = `id, owner_id, name, crop, system, topology, latitude, longitude, planted_date, harvested_date, status, created_at`

func (s *Store) GetUnit(id string) (*models.CultivationUnit, error) {
	row := s.db.QueryRow(`SELECT `+unitColumns+` FROM cultivation_units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUnitsByOwner(ownerID string) ([]models.CultivationUnit, error) {
	rows, err := s.db.Query(`SELECT `+unitColumns+` FROM cultivation_units WHERE owner_id = ? ORDER BY planted_date, id`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectUnits(rows)
}

// ListActiveUnits returns every unit still accumulating days, across all
// owners. The catchup job walks these.
func (s *Store) ListActiveUnits() ([]models.CultivationUnit, error) {
	rows, err := s.db.Query(`SELECT ` + unitColumns + ` FROM cultivation_units WHERE status != 'harvested' ORDER BY owner_id, planted_date, id`)
	if err != nil {
		return nil, err
	}
	return collectUnits(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (models.CultivationUnit, error) {
	var u models.CultivationUnit
	var system, topology, status string
	if err := row.Scan(&u.ID, &u.OwnerID, &u.Name, &u.Crop, &system, &topology,
		&u.Latitude, &u.Longitude, &u.PlantedDate, &u.HarvestedDate, &status, &u.CreatedAt); err != nil {
		return models.CultivationUnit{}, err
	}
	u.System = models.SystemKind(system)
	u.Topology = models.Topology(topology)
	u.Status = models.UnitStatus(status)
	u.PlantedDate = models.DayUTC(u.PlantedDate)
	if u.HarvestedDate.Valid {
		u.HarvestedDate.Time = models.DayUTC(u.HarvestedDate.Time)
	}
	return u, nil
}

func collectUnits(rows *sql.Rows) ([]models.CultivationUnit, error) {
	defer rows.Close()
	var units []models.CultivationUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// InsertLog stores one log row and returns its id. A zero CreatedAt is
// stamped with the current UTC time; ghost commits pass entries straight from
// the gap walk, which deliberately leaves CreatedAt unset.
func (s *Store) InsertLog(e models.DailyLogEntry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	kind, payload, err := models.EncodeTelemetry(e.Telemetry)
	if err != nil {
		return 0, err
	}
	actions, err := encodeActions(e.Actions)
	if err != nil {
		return 0, err
	}

	res, err := s.db.Exec(`
		INSERT INTO daily_logs (unit_id, day, ph, ec, temp, humidity, water_temp, telemetry_kind, telemetry_json, is_backfilled, actions_json, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, e.UnitID, models.DayUTC(e.Day), e.PH, e.EC, e.Temp, e.Humidity, e.WaterTemp,
		kind, payload, e.IsBackfilled, actions, e.Notes, createdAt)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Duplicate ghost day; the existing row stands.
		return 0, nil
	}
	return res.LastInsertId()
}

// InsertLogs commits a batch of rows, typically ghost entries proposed by the
// gap walk. The partial unique index on (unit_id, day) for backfilled rows
// makes re-commits of the same ghost days no-ops.
func (s *Store) InsertLogs(entries []models.DailyLogEntry) (int, error) {
	inserted := 0
	for _, e := range entries {
		id, err := s.InsertLog(e)
		if err != nil {
			return inserted, fmt.Errorf("insert log %s/%s: %w", e.UnitID, models.DateKey(e.Day), err)
		}
		if id != 0 {
			inserted++
		}
	}
	return inserted, nil
}

const logColumns = `id, unit_id, day, ph, ec, temp, humidity, water_temp, telemetry_kind, telemetry_json, is_backfilled, actions_json, notes, created_at`

// ListLogs returns every log row for a unit, oldest day first. Duplicate days
// are returned as-is; latest-write-wins resolution happens in
// models.AuthoritativeByDay, not in SQL.
func (s *Store) ListLogs(unitID string) ([]models.DailyLogEntry, error) {
	rows, err := s.db.Query(`SELECT `+logColumns+` FROM daily_logs WHERE unit_id = ? ORDER BY day, created_at, id`, unitID)
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

// ListOwnerLogs returns all log rows for an owner's units since a given day.
func (s *Store) ListOwnerLogs(ownerID string, since time.Time) ([]models.DailyLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT `+logColumns+` FROM daily_logs
		WHERE unit_id IN (SELECT id FROM cultivation_units WHERE owner_id = ?) AND day >= ?
		ORDER BY day, created_at, id
	`, ownerID, models.DayUTC(since))
	if err != nil {
		return nil, err
	}
	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]models.DailyLogEntry, error) {
	defer rows.Close()
	var entries []models.DailyLogEntry
	for rows.Next() {
		var e models.DailyLogEntry
		var kind, payload, actions string
		if err := rows.Scan(&e.ID, &e.UnitID, &e.Day, &e.PH, &e.EC, &e.Temp, &e.Humidity, &e.WaterTemp,
			&kind, &payload, &e.IsBackfilled, &actions, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Day = models.DayUTC(e.Day)
		telemetry, err := models.DecodeTelemetry(kind, payload)
		if err != nil {
			return nil, err
		}
		e.Telemetry = telemetry
		if e.Actions, err = decodeActions(actions); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MergeWeather unions fetched samples into the cache for a location. Existing
// dates are left untouched: the cache only grows, so concurrent fetchers can
// never erase each other's days.
func (s *Store) MergeWeather(lat, lon float64, samples []models.WeatherSample) (int, error) {
	lat, lon = roundCoord(lat), roundCoord(lon)
	now := time.Now().UTC()
	merged := 0
	for _, w := range samples {
		res, err := s.db.Exec(`
			INSERT INTO weather_samples (date, latitude, longitude, temp_min, temp_max, solar_radiation, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(date, latitude, longitude) DO NOTHING
		`, models.DayUTC(w.Date), lat, lon, w.TempMin, w.TempMax, w.SolarRadiation, now)
		if err != nil {
			return merged, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			merged++
		}
	}
	return merged, nil
}

// GetWeather loads the cached samples for a location over [start, end),
// keyed by date for the gap walk.
func (s *Store) GetWeather(lat, lon float64, start, end time.Time) (map[string]models.WeatherSample, error) {
	rows, err := s.db.Query(`
		SELECT date, temp_min, temp_max, solar_radiation
		FROM weather_samples
		WHERE latitude = ? AND longitude = ? AND date >= ? AND date < ?
		ORDER BY date
	`, roundCoord(lat), roundCoord(lon), models.DayUTC(start), models.DayUTC(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make(map[string]models.WeatherSample)
	for rows.Next() {
		var w models.WeatherSample
		if err := rows.Scan(&w.Date, &w.TempMin, &w.TempMax, &w.SolarRadiation); err != nil {
			return nil, err
		}
		w.Date = models.DayUTC(w.Date)
		samples[models.DateKey(w.Date)] = w
	}
	return samples, rows.Err()
}

// RecordHarvest stores the harvest record and closes the unit's lifecycle in
// one transaction.
func (s *Store) RecordHarvest(rec models.HarvestRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO harvest_records (unit_id, harvest_date, yield_grams, quality, notes)
		VALUES (?, ?, ?, ?, ?)
	`, rec.UnitID, models.DayUTC(rec.HarvestDate), rec.YieldGrams, rec.Quality, rec.Notes); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert harvest: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE cultivation_units SET status = 'harvested', harvested_date = ? WHERE id = ?
	`, models.DayUTC(rec.HarvestDate), rec.UnitID); err != nil {
		tx.Rollback()
		return fmt.Errorf("close unit: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetHarvest(unitID string) (*models.HarvestRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, unit_id, harvest_date, yield_grams, quality, notes, created_at
		FROM harvest_records WHERE unit_id = ? ORDER BY created_at DESC LIMIT 1
	`, unitID)

	var rec models.HarvestRecord
	err := row.Scan(&rec.ID, &rec.UnitID, &rec.HarvestDate, &rec.YieldGrams, &rec.Quality, &rec.Notes, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.HarvestDate = models.DayUTC(rec.HarvestDate)
	return &rec, nil
}

// roundCoord normalizes coordinates to two decimals (~1km) so nearby units
// share one weather cache row per day instead of fragmenting the cache.
func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

func encodeActions(actions []string) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	b, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(b), nil
}

func decodeActions(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var actions []string
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return actions, nil
}
