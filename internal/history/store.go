// Package history persists an audit trail of scaling decisions and work
// outcomes to SQLite. It is append-only operator tooling: the queue never
// reads it back, and losing it affects dashboards, not scheduling.
package history

import (
	"database/sql"
	"sync"
	"time"

	// SQLite driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"

	"github.com/gigbase/stagehand/internal/errors"
)

// DecisionRecord is one persisted scaling decision.
type DecisionRecord struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
	Utilization float64   `json:"utilization"`
	Instances   int       `json:"instances"`
	CreatedAt   time.Time `json:"created_at"`
}

// OutcomeRecord is one persisted terminal work item.
type OutcomeRecord struct {
	ID         int64     `json:"id"`
	ItemID     string    `json:"item_id"`
	OwnerID    string    `json:"owner_id"`
	Category   string    `json:"category"`
	Priority   string    `json:"priority"`
	Status     string    `json:"status"`
	Overflowed bool      `json:"overflowed"`
	WaitMs     int64     `json:"wait_ms"`
	RunMs      int64     `json:"run_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutcomeCounts aggregates outcomes by status.
type OutcomeCounts struct {
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Overflowed int `json:"overflowed"`
}

// Store wraps the SQLite database with typed helpers. It is safe for
// concurrent use; writes are serialized internally because SQLite allows a
// single writer.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the history database at path and initializes the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewHistoryError("failed to open database", err).WithPath(path)
	}
	// SQLite allows one writer, and a pooled ":memory:" DSN would give each
	// connection its own database. One connection serves both constraints.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates the tables and indexes if they do not exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scaling_decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		utilization REAL NOT NULL,
		instances INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		category TEXT,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		overflowed INTEGER NOT NULL DEFAULT 0,
		wait_ms INTEGER NOT NULL DEFAULT 0,
		run_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_created ON scaling_decisions(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_created ON work_outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_status ON work_outcomes(status);
	CREATE INDEX IF NOT EXISTS idx_outcomes_owner ON work_outcomes(owner_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.NewHistoryError("failed to initialize schema", err).WithOperation("init")
	}
	return nil
}

// InsertDecision appends one scaling decision.
func (s *Store) InsertDecision(rec *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.NewHistoryError("insert rejected", errors.ErrHistoryClosed).WithOperation("insert_decision")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO scaling_decisions (action, delta, reason, utilization, instances, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Action, rec.Delta, rec.Reason, rec.Utilization, rec.Instances, rec.CreatedAt)
	if err != nil {
		return errors.NewHistoryError("failed to insert decision", err).WithOperation("insert_decision")
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// InsertOutcome appends one work outcome.
func (s *Store) InsertOutcome(rec *OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.NewHistoryError("insert rejected", errors.ErrHistoryClosed).WithOperation("insert_outcome")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO work_outcomes (item_id, owner_id, category, priority, status, overflowed, wait_ms, run_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ItemID, rec.OwnerID, rec.Category, rec.Priority, rec.Status,
		boolToInt(rec.Overflowed), rec.WaitMs, rec.RunMs, nullString(rec.Error), rec.CreatedAt)
	if err != nil {
		return errors.NewHistoryError("failed to insert outcome", err).WithOperation("insert_outcome")
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// RecentDecisions returns the most recent decisions, newest first.
func (s *Store) RecentDecisions(limit int) ([]DecisionRecord, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, action, delta, reason, utilization, instances, created_at
		FROM scaling_decisions ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewHistoryError("failed to query decisions", err).WithOperation("recent_decisions")
	}
	defer rows.Close()

	records := []DecisionRecord{}
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.Delta, &rec.Reason,
			&rec.Utilization, &rec.Instances, &rec.CreatedAt); err != nil {
			// A scan failure means the schema drifted; a partial answer would
			// hide it.
			return nil, errors.NewHistoryError("failed to scan decision", err).WithOperation("recent_decisions")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentOutcomes returns the most recent outcomes, newest first.
func (s *Store) RecentOutcomes(limit int) ([]OutcomeRecord, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, item_id, owner_id, category, priority, status, overflowed, wait_ms, run_ms, error, created_at
		FROM work_outcomes ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewHistoryError("failed to query outcomes", err).WithOperation("recent_outcomes")
	}
	defer rows.Close()

	records := []OutcomeRecord{}
	for rows.Next() {
		var rec OutcomeRecord
		var overflowed int
		var errMsg sql.NullString
		var category sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.OwnerID, &category, &rec.Priority,
			&rec.Status, &overflowed, &rec.WaitMs, &rec.RunMs, &errMsg, &rec.CreatedAt); err != nil {
			return nil, errors.NewHistoryError("failed to scan outcome", err).WithOperation("recent_outcomes")
		}
		rec.Overflowed = overflowed != 0
		if category.Valid {
			rec.Category = category.String
		}
		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Counts aggregates outcomes by status over the store's lifetime.
func (s *Store) Counts() (*OutcomeCounts, error) {
	var counts OutcomeCounts
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM work_outcomes WHERE status = ?", "completed",
	).Scan(&counts.Completed)
	if err != nil {
		return nil, errors.NewHistoryError("failed to count outcomes", err).WithOperation("counts")
	}
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM work_outcomes WHERE status = ?", "failed",
	).Scan(&counts.Failed); err != nil {
		return nil, errors.NewHistoryError("failed to count outcomes", err).WithOperation("counts")
	}
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM work_outcomes WHERE overflowed = 1",
	).Scan(&counts.Overflowed); err != nil {
		return nil, errors.NewHistoryError("failed to count outcomes", err).WithOperation("counts")
	}
	return &counts, nil
}

// Close closes the underlying database. Inserts after Close fail with
// errors.ErrHistoryClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return errors.NewHistoryError("failed to close database", err).WithOperation("close")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
