// Package memory is the pipeline stage that persists conversation history
// and resolves the routing target before handing context to the core stage.
package memory

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/dayuer/starfish-go/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT    NOT NULL,
	role            TEXT    NOT NULL,
	content         TEXT    NOT NULL,
	timestamp       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, timestamp);
`

// HistoryStore persists messages in SQLite.
type HistoryStore struct {
	db    *sql.DB
	limit int
}

// OpenHistoryStore opens (and migrates) the database at path. limit bounds
// how much history a conversation loads; zero means 20.
func OpenHistoryStore(path string, limit int) (*HistoryStore, error) {
	if limit <= 0 {
		limit = 20
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &HistoryStore{db: db, limit: limit}, nil
}

// Save appends one message. timestamp is epoch millis.
func (s *HistoryStore) Save(ctx context.Context, conversationID, role, content string, timestamp int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, timestamp)
	return err
}

// History returns the most recent messages for the conversation in
// chronological order, bounded by the store limit.
func (s *HistoryStore) History(ctx context.Context, conversationID string) ([]event.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages
		 WHERE conversation_id = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		conversationID, s.limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []event.HistoryEntry
	for rows.Next() {
		var e event.HistoryEntry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query was newest-first; the pipeline contract is chronological.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
