// Package history provides the append-only per-agent run history store,
// backed by SQLite. Records are only ever inserted; nothing rewrites or
// reorders prior rows, so a crash mid-append cannot corrupt earlier records.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yamagen/frontdesk/pkg/models"
)

// Store wraps the SQLite history database.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the history database path under the user data dir.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "frontdesk", "history.db")
}

// Open opens the history database at the given path, creating parent
// directories if needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1History},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Timestamps are stored as RFC 3339 text so records read back bit-identical.
const migrationV1History = `
CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	topic TEXT NOT NULL,
	elapsed_seconds INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	cost_jpy REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_agent ON history(agent);
`

// Append inserts one record into the agent's history. Malformed records
// (missing ID or agent) are rejected before touching the store.
func (s *Store) Append(agent string, rec models.HistoryRecord) error {
	if agent == "" {
		return fmt.Errorf("append history: empty agent name")
	}
	if rec.ID == "" {
		return fmt.Errorf("append history: record has no ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO history (id, agent, timestamp, topic, elapsed_seconds, cost_usd, cost_jpy)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, agent, rec.Timestamp.Format(time.RFC3339Nano), rec.Topic,
		rec.ElapsedSeconds, rec.CostUSD, rec.CostJPY,
	)
	if err != nil {
		return fmt.Errorf("append history for %s: %w", agent, err)
	}
	return nil
}

// ListByAgent returns the agent's records in append order. An empty history
// yields an empty slice, not an error.
func (s *Store) ListByAgent(agent string) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(`
		SELECT id, timestamp, topic, elapsed_seconds, cost_usd, cost_jpy
		FROM history WHERE agent = ? ORDER BY rowid`, agent)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", agent, err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.Topic, &rec.ElapsedSeconds, &rec.CostUSD, &rec.CostJPY); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp in history record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history for %s: %w", agent, err)
	}
	return records, nil
}

// Agents returns the distinct agent names present in the store.
func (s *Store) Agents() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query("SELECT DISTINCT agent FROM history ORDER BY agent")
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan agent name: %w", err)
		}
		agents = append(agents, name)
	}
	return agents, rows.Err()
}
