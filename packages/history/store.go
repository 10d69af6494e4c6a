// Package history keeps a local SQLite log of engine responses.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

const (
	// MaxBodyBytes caps how much of a body is stored per response
	MaxBodyBytes = 64 * 1024

	DefaultPath  = ".pollhttp/history.db"
	writeTimeout = 5 * time.Second
)

var ErrClosed = errors.New("history store is closed")

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id     TEXT NOT NULL DEFAULT '',
	method         TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	code           INTEGER NOT NULL DEFAULT 0,
	content_type   TEXT NOT NULL DEFAULT '',
	content_length INTEGER NOT NULL DEFAULT 0,
	server         TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	duration_us    INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS responses_created_at ON responses (created_at);
`

// Entry is one stored response
type Entry struct {
	ID            int64
	RequestID     string
	Method        string
	URL           string
	Status        string
	Code          int
	ContentType   string
	ContentLength int
	Server        string
	Body          string
	Duration      time.Duration
	CreatedAt     time.Time
}

// Store is a SQLite backed response log
type Store struct {
	db     *sql.DB
	now    func() time.Time
	closed bool
}

// Open opens or creates a store. conn is "sqlite://path", "sqlite:path" or
// a bare file path; ":memory:" gives a throwaway store.
func Open(conn string) (*Store, error) {
	dsn, err := parseConnectionString(conn)
	if err != nil {
		return nil, err
	}

	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One connection keeps ":memory:" stores coherent and serializes writers
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// parseConnectionString accepts the sqlite URL forms and bare paths
func parseConnectionString(conn string) (string, error) {
	conn = strings.TrimSpace(conn)

	switch {
	case strings.HasPrefix(conn, "sqlite://"):
		conn = strings.TrimPrefix(conn, "sqlite://")
	case strings.HasPrefix(conn, "sqlite:"):
		conn = strings.TrimPrefix(conn, "sqlite:")
	case strings.Contains(conn, "://"):
		scheme, _, _ := strings.Cut(conn, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}

	if conn == "" {
		return "", errors.New("empty history database path")
	}
	return conn, nil
}

// Record stores resp. Bodies longer than MaxBodyBytes are truncated.
func (s *Store) Record(ctx context.Context, resp http.Response) error {
	if s.closed {
		return ErrClosed
	}

	body := resp.Body
	if len(body) > MaxBodyBytes {
		body = body[:MaxBodyBytes]
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses
			(request_id, method, url, status, code, content_type, content_length, server, body, duration_us, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resp.RequestID,
		resp.Method,
		resp.URL,
		resp.Status.String(),
		resp.ResponseCode,
		resp.ContentType,
		resp.ContentLength,
		resp.Server,
		body,
		resp.Duration.Microseconds(),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, method, url, status, code, content_type, content_length, server, body, duration_us, created_at
		FROM responses
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationUs int64
			createdAt  string
		)
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.Method, &e.URL, &e.Status, &e.Code,
			&e.ContentType, &e.ContentLength, &e.Server, &e.Body, &durationUs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Duration = time.Duration(durationUs) * time.Microsecond
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("bad timestamp in row %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// Prune deletes all but the newest keep entries and reports how many went
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM responses
		WHERE id NOT IN (SELECT id FROM responses ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Observer returns an engine observer that records every outcome. Write
// errors are logged, never returned to the engine.
func (s *Store) Observer(logger *slog.Logger) http.Observer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return http.ObserverFunc(func(resp http.Response) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.Record(ctx, resp); err != nil {
			logger.Warn("failed to record response",
				slog.String("request_id", resp.RequestID),
				slog.String("url", resp.URL),
				slog.Any("error", err),
			)
		}
	})
}
