package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Event is the audit entry of one estimate request. The submitted profile is
// deliberately absent.
type Event struct {
	ID           int64         `json:"id"`
	RequestID    string        `json:"request_id"`
	Source       string        `json:"source"`
	ModelVersion string        `json:"model_version"`
	Status       string        `json:"status"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	Amount       float64       `json:"amount,omitempty"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store keeps estimate audit events in SQLite.
type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	store := &Store{conn: conn}
	if err := store.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.conn.Exec(`
    CREATE TABLE IF NOT EXISTS estimates (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        source TEXT NOT NULL DEFAULT '',
        model_version TEXT NOT NULL DEFAULT '',
        status TEXT NOT NULL,
        error_kind TEXT NOT NULL DEFAULT '',
        amount REAL NOT NULL DEFAULT 0,
        duration_us INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
    `)
	return err
}

func (s *Store) Record(ctx context.Context, event Event) error {
	if s == nil || s.conn == nil {
		return errors.New("database not initialized")
	}
	if event.Status == "" {
		return errors.New("status required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
        INSERT INTO estimates (
            request_id, source, model_version, status, error_kind, amount, duration_us, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RequestID,
		event.Source,
		event.ModelVersion,
		event.Status,
		event.ErrorKind,
		event.Amount,
		event.Duration.Microseconds(),
		event.CreatedAt.UTC(),
	)
	return err
}

// Recent returns the newest events first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.conn == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx, `
        SELECT id, request_id, source, model_version, status, error_kind, amount, duration_us, created_at
        FROM estimates
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		var micros int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Source, &e.ModelVersion, &e.Status, &e.ErrorKind, &e.Amount, &micros, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(micros) * time.Microsecond
		events = append(events, e)
	}
	return events, rows.Err()
}

// Counts returns the number of events per status.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.conn == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := s.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM estimates GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Prune deletes events created before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.conn == nil {
		return 0, errors.New("database not initialized")
	}
	res, err := s.conn.ExecContext(ctx, `DELETE FROM estimates WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunRetention prunes events older than keep every interval until ctx is
// done. onPrune, if set, is told about every non-empty prune or failure.
func (s *Store) RunRetention(ctx context.Context, keep, interval time.Duration, onPrune func(int64, error)) {
	if keep <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx, time.Now().Add(-keep))
			if onPrune != nil && (n > 0 || err != nil) {
				onPrune(n, err)
			}
		}
	}
}
