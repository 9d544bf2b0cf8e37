// Package transcript archives the full message exchange per conversation so
// past sessions can be audited after the in-memory task is gone.
package transcript

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Direction of a transcript entry.
const (
	DirIn  = "in"  // user to dispatcher
	DirOut = "out" // dispatcher to user
)

// Entry is one archived message.
type Entry struct {
	ID             string
	ConversationID string
	Direction      string
	Text           string
	Timestamp      time.Time
}

// Store persists transcripts to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the transcript database, creating the schema on first use.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transcript (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			text TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_transcript_conversation ON transcript(conversation_id)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript index: %w", err)
	}

	return &Store{db: db}, nil
}

// Append records one message.
func (s *Store) Append(conversationID, direction, text string) error {
	if conversationID == "" {
		return fmt.Errorf("transcript entry has no conversation id")
	}
	if direction != DirIn && direction != DirOut {
		return fmt.Errorf("invalid transcript direction %q", direction)
	}

	_, err := s.db.Exec(`
		INSERT INTO transcript (id, conversation_id, direction, text, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), conversationID, direction, text, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert transcript entry: %w", err)
	}
	return nil
}

// List returns a conversation's entries in insertion order.
func (s *Store) List(conversationID string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, direction, text, timestamp
		FROM transcript
		WHERE conversation_id = ?
		ORDER BY rowid
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Direction, &e.Text, &ts); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse transcript timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
