package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Run is one generation pass: the date it ran for, how long it took and what
// it produced. The archive pages are built from these rows.
type Run struct {
	ID            int64  `json:"id"`
	Date          string `json:"date"`
	TS            int64  `json:"ts"`
	DurationMs    int64  `json:"duration_ms"`
	PagesWritten  int    `json:"pages_written"`
	SymbolsOK     int    `json:"symbols_ok"`
	SymbolsFailed int    `json:"symbols_failed"`
	CreatedAt     string `json:"created_at"`
}

type Snapshot struct {
	RunID         int64   `json:"run_id"`
	Date          string  `json:"date"`
	TS            int64   `json:"ts"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	ChangePct     float64 `json:"change_pct"`
	Volume        int64   `json:"volume"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/site.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			ts INTEGER NOT NULL,
			duration_ms INTEGER,
			pages_written INTEGER,
			symbols_ok INTEGER,
			symbols_failed INTEGER,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			ts INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			name TEXT,
			price REAL,
			previous_close REAL,
			change_pct REAL,
			volume INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(date);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertRun(run Run) (int64, error) {
	if run.TS == 0 {
		run.TS = time.Now().Unix()
	}
	res, err := s.db.Exec(
		`INSERT INTO runs (date, ts, duration_ms, pages_written, symbols_ok, symbols_failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Date, run.TS, run.DurationMs, run.PagesWritten, run.SymbolsOK, run.SymbolsFailed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	return id, nil
}

func (s *Store) InsertSnapshots(snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO snapshots (run_id, date, ts, symbol, name, price, previous_close, change_pct, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()
	for _, sn := range snapshots {
		if sn.TS == 0 {
			sn.TS = time.Now().Unix()
		}
		if _, err := stmt.Exec(sn.RunID, sn.Date, sn.TS, sn.Symbol, sn.Name,
			sn.Price, sn.PreviousClose, sn.ChangePct, sn.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert snapshot %s: %w", sn.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// ListDates returns archive dates, newest first.
func (s *Store) ListDates(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 365
	}
	rows, err := s.db.Query(`SELECT DISTINCT date FROM runs ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SnapshotsByDate returns the snapshots of the latest run for that date,
// ordered by change percent descending.
func (s *Store) SnapshotsByDate(date string) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT run_id, date, ts, symbol, name, price, previous_close, change_pct, volume
		 FROM snapshots
		 WHERE date = ? AND run_id = (SELECT MAX(id) FROM runs WHERE date = ?)
		 ORDER BY change_pct DESC`,
		date, date,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshots by date: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func (s *Store) LatestRun() (Run, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, date, ts, duration_ms, pages_written, symbols_ok, symbols_failed, created_at
		 FROM runs ORDER BY id DESC LIMIT 1`,
	)
	var r Run
	err := row.Scan(&r.ID, &r.Date, &r.TS, &r.DurationMs, &r.PagesWritten, &r.SymbolsOK, &r.SymbolsFailed, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("latest run: %w", err)
	}
	return r, true, nil
}

// SnapshotsByRun returns a run's snapshots ordered by change percent descending.
func (s *Store) SnapshotsByRun(runID int64) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT run_id, date, ts, symbol, name, price, previous_close, change_pct, volume
		 FROM snapshots WHERE run_id = ? ORDER BY change_pct DESC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshots by run: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.RunID, &sn.Date, &sn.TS, &sn.Symbol, &sn.Name,
			&sn.Price, &sn.PreviousClose, &sn.ChangePct, &sn.Volume); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}
