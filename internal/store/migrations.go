package store

import (
	"database/sql"
	"fmt"
)

// Migration is one forward-only schema change, applied in ID order and
// recorded in schema_version, grounded on the teacher's
// internal/database/migrations.go.
type Migration struct {
	ID          int
	Description string
	SQL         string
}

var migrations = []Migration{
	{
		ID:          1,
		Description: "schema_version bookkeeping table",
		SQL: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		ID:          2,
		Description: "settings key/value store",
		SQL: `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`,
	},
	{
		ID:          3,
		Description: "runs table",
		SQL: `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL,
	start_ts DATETIME NOT NULL,
	end_ts DATETIME,
	zone_signature TEXT NOT NULL,
	zone_display_name TEXT NOT NULL,
	level_id INTEGER NOT NULL,
	level_type INTEGER NOT NULL,
	level_uid INTEGER NOT NULL,
	is_hub_zone INTEGER NOT NULL DEFAULT 0,
	is_sub_zone INTEGER NOT NULL DEFAULT 0,
	parent_run_id INTEGER,
	paused INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_scope ON runs(scope);
CREATE INDEX IF NOT EXISTS idx_runs_parent ON runs(parent_run_id);`,
	},
	{
		ID:          4,
		Description: "slot_state table",
		SQL: `
CREATE TABLE IF NOT EXISTS slot_state (
	scope TEXT NOT NULL,
	page_id INTEGER NOT NULL,
	slot_id INTEGER NOT NULL,
	type_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	empty INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (scope, page_id, slot_id)
);`,
	},
	{
		ID:          5,
		Description: "item_deltas table",
		SQL: `
CREATE TABLE IF NOT EXISTS item_deltas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL,
	run_id INTEGER,
	page_id INTEGER NOT NULL,
	slot_id INTEGER NOT NULL,
	type_id INTEGER NOT NULL,
	signed_qty INTEGER NOT NULL,
	context TEXT NOT NULL,
	ts DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deltas_scope ON item_deltas(scope);
CREATE INDEX IF NOT EXISTS idx_deltas_run ON item_deltas(run_id);`,
	},
	{
		ID:          6,
		Description: "items metadata table",
		SQL: `
CREATE TABLE IF NOT EXISTS items (
	type_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	icon_ref TEXT
);`,
	},
	{
		ID:          7,
		Description: "local prices table",
		SQL: `
CREATE TABLE IF NOT EXISTS prices (
	scope TEXT NOT NULL,
	type_id INTEGER NOT NULL,
	value REAL NOT NULL,
	source TEXT NOT NULL,
	updated_ts DATETIME NOT NULL,
	PRIMARY KEY (scope, type_id)
);`,
	},
	{
		ID:          8,
		Description: "cloud price cache and hourly history",
		SQL: `
CREATE TABLE IF NOT EXISTS cloud_prices (
	type_id INTEGER PRIMARY KEY,
	median REAL NOT NULL,
	p10 REAL NOT NULL,
	p90 REAL NOT NULL,
	contributor_count INTEGER NOT NULL,
	cloud_updated_ts DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS price_history (
	type_id INTEGER NOT NULL,
	hour_bucket DATETIME NOT NULL,
	median REAL NOT NULL,
	p10 REAL NOT NULL,
	p90 REAL NOT NULL,
	submission_count INTEGER NOT NULL,
	unique_device_count INTEGER NOT NULL,
	PRIMARY KEY (type_id, hour_bucket)
);`,
	},
	{
		ID:          9,
		Description: "tailer log position bookkeeping",
		SQL: `
CREATE TABLE IF NOT EXISTS log_position (
	path TEXT PRIMARY KEY,
	offset INTEGER NOT NULL,
	inode TEXT NOT NULL,
	size INTEGER NOT NULL
);`,
	},
	{
		ID:          10,
		Description: "cloud upload outbox",
		SQL: `
CREATE TABLE IF NOT EXISTS outbox (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type_id INTEGER NOT NULL,
	value REAL NOT NULL,
	captured_ts DATETIME NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_attempt_ts DATETIME,
	next_attempt_ts DATETIME,
	last_error TEXT
);`,
	},
	{
		ID:          11,
		Description: "item type_cn category for the gear allowlist",
		SQL: `
ALTER TABLE items ADD COLUMN type_cn TEXT NOT NULL DEFAULT '';`,
	},
}

func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.ID <= current {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.ID, m.Description, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(m Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// legacyProbe reports whether the attached "legacy" schema (see
// Store.copyForwardLegacy) actually contains a settings table worth
// copying forward, as opposed to being an empty or unrelated file.
func legacyProbe(db *sql.DB, legacyPath string) (bool, error) {
	var name string
	row := db.QueryRow(`SELECT name FROM legacy.sqlite_master WHERE type = 'table' AND name = 'settings'`)
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
