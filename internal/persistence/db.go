// Package persistence provides SQLite-based economy state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/sim"
	"github.com/talgya/hamlet/internal/world"
)

// DB wraps a SQLite connection for economy state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS producers (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		stage INTEGER NOT NULL,
		paused INTEGER NOT NULL,
		last_upgrade_tick INTEGER NOT NULL,
		shortage_ticks INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS houses (
		id INTEGER PRIMARY KEY,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		stage INTEGER NOT NULL,
		reserved INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS research (
		id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_reports (
		tick INTEGER PRIMARY KEY,
		population INTEGER NOT NULL,
		mood REAL NOT NULL,
		houses_needs_met INTEGER NOT NULL,
		upgrades INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type producerRow struct {
	ID              int64  `db:"id"`
	Kind            string `db:"kind"`
	Q               int    `db:"pos_q"`
	R               int    `db:"pos_r"`
	Stage           int    `db:"stage"`
	Paused          int    `db:"paused"`
	LastUpgradeTick int64  `db:"last_upgrade_tick"`
	ShortageTicks   int    `db:"shortage_ticks"`
}

type houseRow struct {
	ID       int64 `db:"id"`
	Q        int   `db:"pos_q"`
	R        int   `db:"pos_r"`
	Stage    int   `db:"stage"`
	Reserved int   `db:"reserved"`
}

type resourceRow struct {
	ID     string `db:"id"`
	Amount int64  `db:"amount"`
}

// SaveState writes a captured state (full replace) in one transaction.
func (db *DB) SaveState(st *sim.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"producers", "houses", "resources", "research"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO producers
		(id, kind, pos_q, pos_r, stage, paused, last_upgrade_tick, shortage_ticks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range st.Producers {
		_, err := stmt.Exec(
			int64(p.ID), p.Kind, p.At.Q, p.At.R, p.Stage,
			boolInt(p.Paused), p.LastUpgradeTick, p.ShortageTicks,
		)
		if err != nil {
			return fmt.Errorf("insert producer %d: %w", p.ID, err)
		}
	}

	for _, h := range st.Houses {
		_, err := tx.Exec(
			"INSERT INTO houses (id, pos_q, pos_r, stage, reserved) VALUES (?, ?, ?, ?, ?)",
			int64(h.ID), h.At.Q, h.At.R, h.Stage, boolInt(h.Reserved),
		)
		if err != nil {
			return fmt.Errorf("insert house %d: %w", h.ID, err)
		}
	}

	for id, amount := range st.Resources {
		if _, err := tx.Exec("INSERT INTO resources (id, amount) VALUES (?, ?)", string(id), amount); err != nil {
			return fmt.Errorf("insert resource %s: %w", id, err)
		}
	}
	for _, id := range st.Research {
		if _, err := tx.Exec("INSERT INTO research (id) VALUES (?)", id); err != nil {
			return fmt.Errorf("insert research %s: %w", id, err)
		}
	}

	meta := map[string]string{
		"run_id":       st.RunID,
		"last_tick":    strconv.FormatInt(st.Tick, 10),
		"worker_total": strconv.FormatUint(uint64(st.WorkerTotal), 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// LoadState reads the saved state. It returns nil and no error when the
// database has never been saved to.
func (db *DB) LoadState() (*sim.State, error) {
	lastTick, err := db.GetMeta("last_tick")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	st := &sim.State{Resources: make(map[economy.ResourceID]int64)}
	if st.Tick, err = strconv.ParseInt(lastTick, 10, 64); err != nil {
		return nil, fmt.Errorf("parse last_tick: %w", err)
	}
	if st.RunID, err = db.GetMeta("run_id"); err != nil {
		return nil, fmt.Errorf("load run id: %w", err)
	}
	workers, err := db.GetMeta("worker_total")
	if err != nil {
		return nil, fmt.Errorf("load worker total: %w", err)
	}
	total, err := strconv.ParseUint(workers, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse worker_total: %w", err)
	}
	st.WorkerTotal = uint32(total)

	var resources []resourceRow
	if err := db.conn.Select(&resources, "SELECT id, amount FROM resources ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	for _, r := range resources {
		st.Resources[economy.ResourceID(r.ID)] = r.Amount
	}

	if err := db.conn.Select(&st.Research, "SELECT id FROM research ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load research: %w", err)
	}

	var producers []producerRow
	if err := db.conn.Select(&producers, "SELECT * FROM producers ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load producers: %w", err)
	}
	for _, p := range producers {
		st.Producers = append(st.Producers, sim.ProducerState{
			ID:              uint64(p.ID),
			Kind:            p.Kind,
			At:              world.HexCoord{Q: p.Q, R: p.R},
			Stage:           uint8(p.Stage),
			Paused:          p.Paused != 0,
			LastUpgradeTick: p.LastUpgradeTick,
			ShortageTicks:   p.ShortageTicks,
		})
	}

	var houses []houseRow
	if err := db.conn.Select(&houses, "SELECT * FROM houses ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load houses: %w", err)
	}
	for _, h := range houses {
		st.Houses = append(st.Houses, sim.HouseState{
			ID:       uint64(h.ID),
			At:       world.HexCoord{Q: h.Q, R: h.R},
			Stage:    uint8(h.Stage),
			Reserved: h.Reserved != 0,
		})
	}

	return st, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []sim.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]sim.Event, error) {
	var events []sim.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveReport stores a completed tick's report, replacing any earlier one
// for the same tick.
func (db *DB) SaveReport(r *engine.TickReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report %d: %w", r.Tick, err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO tick_reports
		(tick, population, mood, houses_needs_met, upgrades, report_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Tick, r.Population, r.Mood, r.HousesNeedsMet, r.UpgradesTotal(), string(data),
	)
	return err
}

// RecentReports returns the most recent N tick reports, newest first.
func (db *DB) RecentReports(limit int) ([]engine.TickReport, error) {
	var rows []string
	err := db.conn.Select(&rows, "SELECT report_json FROM tick_reports ORDER BY tick DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]engine.TickReport, 0, len(rows))
	for _, raw := range rows {
		var r engine.TickReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save of the economy between ticks.
func (db *DB) SaveWorldState(s *sim.Simulation) error {
	st, err := s.Capture()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	slog.Info("saving economy state", "tick", st.Tick, "producers", len(st.Producers), "houses", len(st.Houses))

	if err := db.SaveState(st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := db.SaveEvents(s.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	slog.Info("economy state saved")
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
