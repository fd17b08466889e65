// Package store persists every durable component of the pipeline —
// settings, slot state, deltas, runs, prices, cloud price cache, tailer
// position, and the cloud-sync outbox — on top of SQLite.
//
// Grounded on the teacher's internal/proxy/database/database.go connection
// and transaction-discipline idiom and internal/database/migrations.go's
// ordered-migration bookkeeping, generalized to the new schema. Query
// building for partial/dynamic updates follows
// internal/proxy/streaming/update_trackers.go's use of Masterminds/squirrel
// — here with squirrel.Question, since SQLite (unlike the teacher's
// Postgres-flavored query) takes positional "?" placeholders, not "$N".
package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"titrack/internal/model"
)

// sq is the process-wide statement builder using SQLite's placeholder
// style.
var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Store wraps a single SQLite connection. All writes go through writeMu,
// mirroring the teacher's single in-flight transaction discipline — SQLite
// serializes writers at the file level regardless, but holding a Go mutex
// avoids SQLITE_BUSY retries under the default rollback-journal mode.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open creates or opens the SQLite database at path, probing legacyPath
// (if non-empty) for a pre-existing older-format database to copy forward,
// then runs all pending migrations.
func Open(path string, legacyPath string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	if legacyPath != "" {
		if err := s.copyForwardLegacy(legacyPath); err != nil {
			db.Close()
			return nil, fmt.Errorf("copy forward legacy database: %w", err)
		}
	}

	return s, nil
}

// copyForwardLegacy implements spec.md §6's legacy-path probe-and-copy-
// forward migration: if a pre-existing database file is found at
// legacyPath, its settings and items rows are copied into the current
// database (new data always wins ties via INSERT OR IGNORE, since a fresh
// install never has conflicting rows yet).
func (s *Store) copyForwardLegacy(legacyPath string) error {
	if _, err := os.Stat(legacyPath); err != nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.Exec(`ATTACH DATABASE ? AS legacy`, legacyPath); err != nil {
		return err
	}
	defer s.db.Exec(`DETACH DATABASE legacy`)

	found, err := legacyProbe(s.db, legacyPath)
	if err != nil || !found {
		return err
	}

	if _, err := s.db.Exec(`INSERT OR IGNORE INTO settings SELECT * FROM legacy.settings`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO items SELECT * FROM legacy.items`); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Settings ---------------------------------------------------------

func (s *Store) GetSetting(key model.SettingKey) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, string(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SetSetting(key model.SettingKey, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, string(key), value)
	return err
}

// --- Slot state ---------------------------------------------------------

func (s *Store) LoadSlotState(scope model.PlayerScope) (map[model.SlotKey]model.SlotState, error) {
	rows, err := s.db.Query(`SELECT page_id, slot_id, type_id, quantity, empty FROM slot_state WHERE scope = ?`, scope.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.SlotKey]model.SlotState)
	for rows.Next() {
		var page, slotID int
		var typeID int64
		var qty int
		var empty int
		if err := rows.Scan(&page, &slotID, &typeID, &qty, &empty); err != nil {
			return nil, err
		}
		key := model.SlotKey{PageId: model.PageId(page), SlotId: slotID}
		out[key] = model.SlotState{TypeId: model.TypeId(typeID), Quantity: qty, Empty: empty != 0}
	}
	return out, rows.Err()
}

func (s *Store) SaveSlotState(scope model.PlayerScope, slot model.SlotKey, state model.SlotState) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	emptyInt := 0
	if state.Empty {
		emptyInt = 1
	}
	_, err := s.db.Exec(`
INSERT INTO slot_state (scope, page_id, slot_id, type_id, quantity, empty)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(scope, page_id, slot_id) DO UPDATE SET
	type_id = excluded.type_id, quantity = excluded.quantity, empty = excluded.empty`,
		scope.Key(), slot.PageId, slot.SlotId, state.TypeId, state.Quantity, emptyInt)
	return err
}

func (s *Store) ClearSlotState(scope model.PlayerScope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM slot_state WHERE scope = ?`, scope.Key())
	return err
}

// --- Deltas --------------------------------------------------------------

func (s *Store) InsertDelta(d model.Delta) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.Exec(`
INSERT INTO item_deltas (scope, run_id, page_id, slot_id, type_id, signed_qty, context, ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Scope.Key(), d.RunId, d.Slot.PageId, d.Slot.SlotId, d.TypeId, d.SignedQty, string(d.Context), d.Timestamp)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListDeltasForRun(runID model.RunId) ([]model.Delta, error) {
	rows, err := s.db.Query(`
SELECT id, scope, run_id, page_id, slot_id, type_id, signed_qty, context, ts
FROM item_deltas WHERE run_id = ? ORDER BY ts ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeltas(rows)
}

func (s *Store) ListDeltasForScope(scope model.PlayerScope, limit int) ([]model.Delta, error) {
	rows, err := s.db.Query(`
SELECT id, scope, run_id, page_id, slot_id, type_id, signed_qty, context, ts
FROM item_deltas WHERE scope = ? ORDER BY ts DESC LIMIT ?`, scope.Key(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeltas(rows)
}

func scanDeltas(rows *sql.Rows) ([]model.Delta, error) {
	var out []model.Delta
	for rows.Next() {
		var d model.Delta
		var scopeKey string
		var runID sql.NullInt64
		var context string
		if err := rows.Scan(&d.ID, &scopeKey, &runID, &d.Slot.PageId, &d.Slot.SlotId, &d.TypeId, &d.SignedQty, &context, &d.Timestamp); err != nil {
			return nil, err
		}
		d.Scope = model.PlayerScope{PlayerId: scopeKey}
		if runID.Valid {
			v := runID.Int64
			d.RunId = &v
		}
		d.Context = model.ContextTag(context)
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Runs ------------------------------------------------------------

func (s *Store) InsertRun(r model.Run) (model.RunId, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.Exec(`
INSERT INTO runs (scope, start_ts, end_ts, zone_signature, zone_display_name, level_id, level_type, level_uid, is_hub_zone, is_sub_zone, parent_run_id, paused)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Scope.Key(), r.StartTs, r.EndTs, r.ZoneSignature, r.ZoneDisplayName, r.LevelId, r.LevelType, r.LevelUid,
		boolToInt(r.IsHubZone), boolToInt(r.IsSubZone), r.ParentRunId, boolToInt(r.Paused))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return model.RunId(id), err
}

func (s *Store) CloseRun(id model.RunId, endTs time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := sq.Update("runs").Set("end_ts", endTs).Where(squirrel.Eq{"id": id})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(sqlStr, args...)
	return err
}

const runColumns = "id, scope, start_ts, end_ts, zone_signature, zone_display_name, level_id, level_type, level_uid, is_hub_zone, is_sub_zone, parent_run_id, paused"

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun unmarshals one runColumns-shaped row, shared by ListRuns, GetRun
// and GetActiveRuns to keep their column order from drifting apart.
func scanRun(sc scanner) (model.Run, error) {
	var r model.Run
	var scopeKey string
	var endTs sql.NullTime
	var parentID sql.NullInt64
	var isHub, isSub, paused int
	if err := sc.Scan(&r.Id, &scopeKey, &r.StartTs, &endTs, &r.ZoneSignature, &r.ZoneDisplayName,
		&r.LevelId, &r.LevelType, &r.LevelUid, &isHub, &isSub, &parentID, &paused); err != nil {
		return model.Run{}, err
	}
	r.Scope = model.PlayerScope{PlayerId: scopeKey}
	if endTs.Valid {
		t := endTs.Time
		r.EndTs = &t
	}
	if parentID.Valid {
		pid := model.RunId(parentID.Int64)
		r.ParentRunId = &pid
	}
	r.IsHubZone = isHub != 0
	r.IsSubZone = isSub != 0
	r.Paused = paused != 0
	return r, nil
}

func (s *Store) ListRuns(scope model.PlayerScope, limit int) ([]model.Run, error) {
	rows, err := s.db.Query(`
SELECT `+runColumns+`
FROM runs WHERE scope = ? ORDER BY start_ts DESC LIMIT ?`, scope.Key(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun looks up a single run by its store-assigned id.
func (s *Store) GetRun(id model.RunId) (model.Run, bool, error) {
	row := s.db.QueryRow(`
SELECT `+runColumns+`
FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return model.Run{}, false, nil
	}
	if err != nil {
		return model.Run{}, false, err
	}
	return r, true, nil
}

// GetActiveRuns returns every run for scope that is still open
// (end_ts IS NULL), oldest first. During a sub-zone segment both the outer
// run and its sub-run can be open simultaneously (runsegmenter pauses the
// outer run's bookkeeping rather than closing it), so this can return up to
// two rows; ordering by start_ts ASC puts the outer run first. Grounded on
// original_source/src/titrack/db/repository.py's get_active_run, scoped by
// PlayerScope like every other query here since titrack tracks multiple
// scopes in one database.
func (s *Store) GetActiveRuns(scope model.PlayerScope) ([]model.Run, error) {
	rows, err := s.db.Query(`
SELECT `+runColumns+`
FROM runs WHERE scope = ? AND end_ts IS NULL ORDER BY start_ts ASC`, scope.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRunPaused implements the runs resource's pause toggle (spec.md §6).
func (s *Store) SetRunPaused(id model.RunId, paused bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := sq.Update("runs").Set("paused", boolToInt(paused)).Where(squirrel.Eq{"id": id})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(sqlStr, args...)
	return err
}

// ResetRuns destroys all runs and deltas for scope while preserving
// everything else (settings, prices, items), per spec.md §4.6's reset
// semantics.
func (s *Store) ResetRuns(scope model.PlayerScope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM item_deltas WHERE scope = ?`, scope.Key()); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE scope = ?`, scope.Key()); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Prices ------------------------------------------------------------

func (s *Store) UpsertPrice(p model.Price) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO prices (scope, type_id, value, source, updated_ts)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(scope, type_id) DO UPDATE SET value = excluded.value, source = excluded.source, updated_ts = excluded.updated_ts`,
		p.Scope, p.TypeId, p.Value, string(p.Source), p.UpdatedTs)
	return err
}

func (s *Store) GetPrice(scope string, typeID model.TypeId) (model.Price, bool, error) {
	var p model.Price
	var source string
	err := s.db.QueryRow(`SELECT scope, type_id, value, source, updated_ts FROM prices WHERE scope = ? AND type_id = ?`,
		scope, typeID).Scan(&p.Scope, &p.TypeId, &p.Value, &source, &p.UpdatedTs)
	if err == sql.ErrNoRows {
		return model.Price{}, false, nil
	}
	if err != nil {
		return model.Price{}, false, err
	}
	p.Source = model.PriceSource(source)
	return p, true, nil
}

// ListPricesForScope lists every locally-known price for scope, used by the
// prices resource's list/export/migrate-legacy-season operations.
func (s *Store) ListPricesForScope(scope string) ([]model.Price, error) {
	rows, err := s.db.Query(`SELECT scope, type_id, value, source, updated_ts FROM prices WHERE scope = ?`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Price
	for rows.Next() {
		var p model.Price
		var source string
		if err := rows.Scan(&p.Scope, &p.TypeId, &p.Value, &source, &p.UpdatedTs); err != nil {
			return nil, err
		}
		p.Source = model.PriceSource(source)
		out = append(out, p)
	}
	return out, rows.Err()
}

// PresentTypeIds lists the distinct TypeIds currently occupying a non-empty
// slot in scope's inventory, used by the Downlink loop to bound price
// history fetches to items the player actually holds.
func (s *Store) PresentTypeIds(scope model.PlayerScope) ([]model.TypeId, error) {
	rows, err := s.db.Query(`SELECT DISTINCT type_id FROM slot_state WHERE scope = ? AND empty = 0`, scope.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TypeId
	for rows.Next() {
		var t model.TypeId
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Cloud prices / price history ---------------------------------------

func (s *Store) UpsertCloudPrice(c model.CloudPrice) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO cloud_prices (type_id, median, p10, p90, contributor_count, cloud_updated_ts)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(type_id) DO UPDATE SET median = excluded.median, p10 = excluded.p10, p90 = excluded.p90,
	contributor_count = excluded.contributor_count, cloud_updated_ts = excluded.cloud_updated_ts`,
		c.TypeId, c.Median, c.P10, c.P90, c.ContributorCount, c.CloudUpdatedTs)
	return err
}

func (s *Store) GetCloudPrice(typeID model.TypeId) (model.CloudPrice, bool, error) {
	var c model.CloudPrice
	err := s.db.QueryRow(`SELECT type_id, median, p10, p90, contributor_count, cloud_updated_ts FROM cloud_prices WHERE type_id = ?`,
		typeID).Scan(&c.TypeId, &c.Median, &c.P10, &c.P90, &c.ContributorCount, &c.CloudUpdatedTs)
	if err == sql.ErrNoRows {
		return model.CloudPrice{}, false, nil
	}
	if err != nil {
		return model.CloudPrice{}, false, err
	}
	return c, true, nil
}

func (s *Store) InsertPriceHistoryRow(row model.PriceHistoryRow) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO price_history (type_id, hour_bucket, median, p10, p90, submission_count, unique_device_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(type_id, hour_bucket) DO UPDATE SET median = excluded.median, p10 = excluded.p10, p90 = excluded.p90,
	submission_count = excluded.submission_count, unique_device_count = excluded.unique_device_count`,
		row.TypeId, row.HourBucket, row.Median, row.P10, row.P90, row.SubmissionCount, row.UniqueDeviceCount)
	return err
}

func (s *Store) ListPriceHistory(typeID model.TypeId, since time.Time) ([]model.PriceHistoryRow, error) {
	rows, err := s.db.Query(`
SELECT type_id, hour_bucket, median, p10, p90, submission_count, unique_device_count
FROM price_history WHERE type_id = ? AND hour_bucket >= ? ORDER BY hour_bucket ASC`, typeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceHistoryRow
	for rows.Next() {
		var r model.PriceHistoryRow
		if err := rows.Scan(&r.TypeId, &r.HourBucket, &r.Median, &r.P10, &r.P90, &r.SubmissionCount, &r.UniqueDeviceCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Items ---------------------------------------------------------------

func (s *Store) UpsertItem(it model.Item) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO items (type_id, name, icon_ref, type_cn) VALUES (?, ?, ?, ?)
ON CONFLICT(type_id) DO UPDATE SET name = excluded.name, icon_ref = excluded.icon_ref, type_cn = excluded.type_cn`,
		it.TypeId, it.Name, it.IconRef, it.TypeCN)
	return err
}

func (s *Store) GetItem(typeID model.TypeId) (model.Item, bool, error) {
	var it model.Item
	err := s.db.QueryRow(`SELECT type_id, name, icon_ref, type_cn FROM items WHERE type_id = ?`, typeID).
		Scan(&it.TypeId, &it.Name, &it.IconRef, &it.TypeCN)
	if err == sql.ErrNoRows {
		return model.Item{}, false, nil
	}
	if err != nil {
		return model.Item{}, false, err
	}
	return it, true, nil
}

// GearAllowlistTypeIds resolves typeCN (a set of type_cn category strings)
// against the items table, mirroring initialize_gear_allowlist in
// original_source/src/titrack/data/inventory.py. Items whose type_cn has
// never been observed simply aren't in the items table yet and are
// excluded until a later UpsertItem call supplies it.
func (s *Store) GearAllowlistTypeIds(typeCN map[string]bool) (map[model.TypeId]bool, error) {
	cats := make([]string, 0, len(typeCN))
	for cn := range typeCN {
		cats = append(cats, cn)
	}
	out := map[model.TypeId]bool{}
	if len(cats) == 0 {
		return out, nil
	}

	query := sq.Select("type_id").From("items").Where(squirrel.Eq{"type_cn": cats})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id model.TypeId
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// --- Log position (tailer offsets) ---------------------------------------

func (s *Store) GetLogPosition(path string) (offset int64, inode string, size int64, ok bool, err error) {
	row := s.db.QueryRow(`SELECT offset, inode, size FROM log_position WHERE path = ?`, path)
	err = row.Scan(&offset, &inode, &size)
	if err == sql.ErrNoRows {
		return 0, "", 0, false, nil
	}
	if err != nil {
		return 0, "", 0, false, err
	}
	return offset, inode, size, true, nil
}

func (s *Store) SetLogPosition(path string, offset int64, inode string, size int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO log_position (path, offset, inode, size) VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET offset = excluded.offset, inode = excluded.inode, size = excluded.size`,
		path, offset, inode, size)
	return err
}

// --- Outbox ----------------------------------------------------------------

func (s *Store) EnqueueOutbox(e model.OutboxEntry) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.Exec(`INSERT INTO outbox (type_id, value, captured_ts) VALUES (?, ?, ?)`,
		e.TypeId, e.Value, e.CapturedTs)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListOutboxFIFO(limit int) ([]model.OutboxEntry, error) {
	rows, err := s.db.Query(`
SELECT id, type_id, value, captured_ts, attempts, last_attempt_ts, last_error
FROM outbox WHERE next_attempt_ts IS NULL OR next_attempt_ts <= CURRENT_TIMESTAMP
ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OutboxEntry
	for rows.Next() {
		var e model.OutboxEntry
		var lastAttempt sql.NullTime
		var lastErr sql.NullString
		if err := rows.Scan(&e.Id, &e.TypeId, &e.Value, &e.CapturedTs, &e.Attempts, &lastAttempt, &lastErr); err != nil {
			return nil, err
		}
		if lastAttempt.Valid {
			t := lastAttempt.Time
			e.LastAttemptTs = &t
		}
		e.LastError = lastErr.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOutboxEntry(id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM outbox WHERE id = ?`, id)
	return err
}

func (s *Store) RetryOutboxEntry(id int64, attempts int, nextAttempt time.Time, lastErr string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
UPDATE outbox SET attempts = ?, last_attempt_ts = CURRENT_TIMESTAMP, next_attempt_ts = ?, last_error = ? WHERE id = ?`,
		attempts, nextAttempt, lastErr, id)
	return err
}

func (s *Store) OutboxDepth() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
