package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS cultivation_units (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT,
    crop TEXT NOT NULL,
    system TEXT NOT NULL,
    topology TEXT NOT NULL DEFAULT '',
    latitude REAL,
    longitude REAL,
    planted_date DATE NOT NULL,
    harvested_date DATE,
    status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS daily_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id TEXT NOT NULL REFERENCES cultivation_units(id),
    day DATE NOT NULL,
    ph REAL,
    ec REAL,
    temp REAL,
    humidity REAL,
    water_temp REAL,
    telemetry_kind TEXT NOT NULL DEFAULT '',
    telemetry_json TEXT NOT NULL DEFAULT '',
    is_backfilled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_samples (
    date DATE NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    temp_min REAL NOT NULL,
    temp_max REAL NOT NULL,
    solar_radiation REAL,
    fetched_at DATETIME NOT NULL,
    PRIMARY KEY (date, latitude, longitude)
);

CREATE INDEX IF NOT EXISTS idx_units_owner ON cultivation_units(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_logs_unit_day ON daily_logs(unit_id, day, created_at);
`,
	},
	{
		Version:     2,
		Description: "One ghost row per unit and day",
		SQL: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_logs_ghost
    ON daily_logs(unit_id, day) WHERE is_backfilled = TRUE;
`,
	},
	{
		Version:     3,
		Description: "Add intervention actions and notes to daily logs",
		SQL: `
ALTER TABLE daily_logs ADD COLUMN actions_json TEXT NOT NULL DEFAULT '';
ALTER TABLE daily_logs ADD COLUMN notes TEXT;
`,
	},
	{
		Version:     4,
		Description: "Add harvest_records table",
		SQL: `
CREATE TABLE IF NOT EXISTS harvest_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id TEXT NOT NULL REFERENCES cultivation_units(id),
    harvest_date DATE NOT NULL,
    yield_grams REAL,
    quality TEXT,
    notes TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_harvest_unit ON harvest_records(unit_id);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
