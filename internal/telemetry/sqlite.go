package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cjeanneret/MechGo/internal/debug"
)

// Run describes one recorded session.
type Run struct {
	ID        string
	Label     string
	StartedAt time.Time
	Samples   int
}

// FlushInterval is the default period of Run.
const FlushInterval = time.Second

// maxPending bounds the samples held in memory while writes fail.
const maxPending = 1 << 16

type sample struct {
	run   string
	cycle int64
	at    int64
	table string
	key   string
	value float64
}

// SQLiteRecorder is a Sink that buffers samples in memory. Log and Tick only
// append under a mutex; Run writes the buffer to SQLite from its own
// goroutine so the control cycle never waits on disk.
type SQLiteRecorder struct {
	path string

	flushMu sync.Mutex // one transaction at a time, in buffer order

	mu         sync.Mutex
	db         *sql.DB
	runID      string
	cycle      int64
	buf        []sample
	maxPending int
	dropped    int64
	now        func() time.Time
}

// NewSQLiteRecorder creates a recorder for the database at path.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	return &SQLiteRecorder{
		path:       path,
		buf:        make([]sample, 0, 1024),
		maxPending: maxPending,
		now:        time.Now,
	}
}

// Init opens the database and creates the tables.
func (r *SQLiteRecorder) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.path == "" {
		return errors.New("sqlite path is required")
	}
	if r.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	r.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			started_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			at_ns INTEGER NOT NULL,
			tbl TEXT NOT NULL,
			key TEXT NOT NULL,
			value REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS samples_series ON samples (run_id, tbl, key, cycle);
	`)
	return err
}

func (r *SQLiteRecorder) getDB() (*sql.DB, error) {
	if r.db == nil {
		return nil, errors.New("sqlite recorder is not initialized")
	}
	return r.db, nil
}

// StartRun flushes pending samples and begins a new run. It returns the run ID.
func (r *SQLiteRecorder) StartRun(ctx context.Context, label string) (string, error) {
	if err := r.Flush(ctx); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.getDB()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		id, label, r.now().UnixNano()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	r.runID = id
	r.cycle = 0
	return id, nil
}

// Log buffers entries for the current run. It is a no-op before StartRun.
func (r *SQLiteRecorder) Log(table string, entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runID == "" {
		return
	}
	at := r.now().UnixNano()
	for _, e := range entries {
		if len(r.buf) >= r.maxPending {
			r.dropped++
			continue
		}
		r.buf = append(r.buf, sample{run: r.runID, cycle: r.cycle, at: at, table: table, key: e.Key, value: e.Value})
	}
}

// Tick advances the cycle counter stamped on subsequent samples.
func (r *SQLiteRecorder) Tick() {
	r.mu.Lock()
	r.cycle++
	r.mu.Unlock()
}

// Pending returns the number of buffered samples.
func (r *SQLiteRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Dropped returns the number of samples lost because the buffer was full.
func (r *SQLiteRecorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Flush writes buffered samples in a single transaction. On failure the
// samples go back to the front of the buffer for the next attempt.
func (r *SQLiteRecorder) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	pending := r.buf
	r.buf = make([]sample, 0, cap(pending))
	db := r.db
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if db == nil {
		r.requeue(pending)
		return errors.New("sqlite recorder is not initialized")
	}
	if err := writeSamples(ctx, db, pending); err != nil {
		r.requeue(pending)
		return err
	}
	return nil
}

// requeue puts pending back ahead of the samples logged since the swap,
// dropping the newest ones beyond the buffer bound.
func (r *SQLiteRecorder) requeue(pending []sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := append(pending, r.buf...)
	if over := len(merged) - r.maxPending; over > 0 {
		r.dropped += int64(over)
		merged = merged[:r.maxPending]
	}
	r.buf = merged
}

func writeSamples(ctx context.Context, db *sql.DB, pending []sample) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, cycle, at_ns, tbl, key, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range pending {
		if _, err := stmt.ExecContext(ctx, s.run, s.cycle, s.at, s.table, s.key, s.value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	return tx.Commit()
}

// Run flushes every interval until ctx is cancelled, then flushes what is
// left. Write errors are logged once and retried on the next tick.
func (r *SQLiteRecorder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = FlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.Flush(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("final telemetry flush: %w", err)
			}
			return nil
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				debug.ErrorOnce("telemetry/flush", "telemetry flush: %v", err)
			}
		}
	}
}

// Runs lists recorded runs, newest first.
func (r *SQLiteRecorder) Runs(ctx context.Context) ([]Run, error) {
	r.mu.Lock()
	db, err := r.getDB()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.label, r.started_at, COUNT(s.run_id)
		FROM runs r LEFT JOIN samples s ON s.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started int64
		if err := rows.Scan(&run.ID, &run.Label, &started, &run.Samples); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(0, started)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Series returns the recorded values of one key in cycle order.
func (r *SQLiteRecorder) Series(ctx context.Context, runID, table, key string) ([]float64, error) {
	r.mu.Lock()
	db, err := r.getDB()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT value FROM samples WHERE run_id = ? AND tbl = ? AND key = ? ORDER BY cycle, at_ns`,
		runID, table, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Close flushes and closes the database.
func (r *SQLiteRecorder) Close() error {
	flushErr := r.Flush(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return flushErr
	}
	err := r.db.Close()
	r.db = nil
	if flushErr != nil {
		return flushErr
	}
	return err
}
