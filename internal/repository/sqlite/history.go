// Package sqlite keeps conversation history in a local SQLite file, for
// single-node deployments that want history to survive a restart without
// running Redis, MongoDB or PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rrens/event-assistant/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_key TEXT NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_key, id);
`

// HistoryStore is a domain.HistoryStore over a SQLite file. The pool holds
// one connection, so writers are serialized and every write is a transaction.
type HistoryStore struct {
	db       *sql.DB
	capacity int
}

// Open opens or creates the history database at path
func Open(ctx context.Context, path string, capacity int) (*HistoryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryStore{db: db, capacity: capacity}, nil
}

// Close closes the database
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the messages of a session, oldest first
func (s *HistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM chat_history WHERE session_key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Set replaces the session log with the most recent capacity messages
func (s *HistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	messages = domain.Tail(messages, s.capacity)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_history WHERE session_key = ?`, key); err != nil {
			return fmt.Errorf("failed to clear messages: %w", err)
		}
		return insert(ctx, tx, key, messages)
	})
}

// Append adds one message and trims the session to capacity
func (s *HistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	return s.AppendMany(ctx, key, []domain.ChatMessage{{Role: role, Content: content}})
}

// AppendMany inserts messages in order and trims the session in one transaction
func (s *HistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insert(ctx, tx, key, messages); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chat_history
			WHERE session_key = ? AND id NOT IN (
				SELECT id FROM chat_history WHERE session_key = ? ORDER BY id DESC LIMIT ?
			)
		`, key, key, s.capacity); err != nil {
			return fmt.Errorf("failed to trim messages: %w", err)
		}
		return nil
	})
}

func insert(ctx context.Context, tx *sql.Tx, key string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chat_history (session_key, role, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		if _, err := stmt.ExecContext(ctx, key, string(m.Role), m.Content); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
	}
	return nil
}

func (s *HistoryStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}
