// Package store persists conversations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"piefitness/internal/chat"
	"piefitness/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL UNIQUE,
	user_id       TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	context       TEXT NOT NULL DEFAULT '{}',
	analytics     TEXT NOT NULL DEFAULT '{}',
	is_active     INTEGER NOT NULL DEFAULT 1,
	is_archived   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	last_activity TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, last_activity);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	text            TEXT NOT NULL,
	sender          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	metadata        TEXT,
	feedback        TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
`

// SQLiteStore implements chat.Store on a single SQLite database.
// A mutex serializes writes; SQLite handles one writer at a time
// anyway and the serialization keeps Save transactions short-lived.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logging.Store("opened conversation database at %s", path)
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindBySessionID loads a conversation with all its messages. Returns
// (nil, nil) when the session has no conversation.
func (s *SQLiteStore) FindBySessionID(ctx context.Context, sessionID string) (*chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, title, context, analytics,
		       is_active, is_archived, created_at, last_activity
		FROM conversations WHERE session_id = ?`, sessionID)

	var conv chat.Conversation
	var ctxJSON, analyticsJSON string
	err := row.Scan(&conv.ID, &conv.SessionID, &conv.UserID, &conv.Title,
		&ctxJSON, &analyticsJSON, &conv.IsActive, &conv.IsArchived,
		&conv.CreatedAt, &conv.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(ctxJSON), &conv.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	if err := json.Unmarshal([]byte(analyticsJSON), &conv.Analytics); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}

	msgs, err := s.loadMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = msgs
	return &conv, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, sender, created_at, metadata, feedback
		FROM messages WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		var metaJSON, fbJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.Text, &m.Sender, &m.Timestamp, &metaJSON, &fbJSON); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if metaJSON.Valid && metaJSON.String != "" {
			m.Metadata = &chat.BotMetadata{}
			if err := json.Unmarshal([]byte(metaJSON.String), m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		if fbJSON.Valid && fbJSON.String != "" {
			m.Feedback = &chat.Feedback{}
			if err := json.Unmarshal([]byte(fbJSON.String), m.Feedback); err != nil {
				return nil, fmt.Errorf("decode feedback: %w", err)
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Save writes the conversation and its full message list in one
// transaction. Messages are replaced wholesale so the stored list
// always matches memory exactly.
func (s *SQLiteStore) Save(ctx context.Context, conv *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctxJSON, err := json.Marshal(conv.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	analyticsJSON, err := json.Marshal(conv.Analytics)
	if err != nil {
		return fmt.Errorf("encode analytics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations
			(id, session_id, user_id, title, context, analytics,
			 is_active, is_archived, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			context = excluded.context,
			analytics = excluded.analytics,
			is_active = excluded.is_active,
			is_archived = excluded.is_archived,
			last_activity = excluded.last_activity`,
		conv.ID, conv.SessionID, conv.UserID, conv.Title,
		string(ctxJSON), string(analyticsJSON),
		conv.IsActive, conv.IsArchived, conv.CreatedAt, conv.LastActivity)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, conversation_id, seq, text, sender, created_at, metadata, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range conv.Messages {
		var metaJSON, fbJSON any
		if m.Metadata != nil {
			b, err := json.Marshal(m.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			metaJSON = string(b)
		}
		if m.Feedback != nil {
			b, err := json.Marshal(m.Feedback)
			if err != nil {
				return fmt.Errorf("encode feedback: %w", err)
			}
			fbJSON = string(b)
		}
		if _, err := stmt.ExecContext(ctx, m.ID, conv.ID, i, m.Text, m.Sender, m.Timestamp, metaJSON, fbJSON); err != nil {
			return fmt.Errorf("save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	logging.StoreDebug("saved conversation %s (%d messages)", conv.ID, len(conv.Messages))
	return nil
}

// ListActive returns active, unarchived conversations with their
// messages, most recently active first. An empty userID lists every
// user's conversations.
func (s *SQLiteStore) ListActive(ctx context.Context, userID string, limit int) ([]*chat.Conversation, error) {
	query := `
		SELECT session_id FROM conversations
		WHERE is_active = 1 AND is_archived = 0
		ORDER BY last_activity DESC LIMIT ?`
	args := []any{limit}
	if userID != "" {
		query = `
		SELECT session_id FROM conversations
		WHERE user_id = ? AND is_active = 1 AND is_archived = 0
		ORDER BY last_activity DESC LIMIT ?`
		args = []any{userID, limit}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	convs := make([]*chat.Conversation, 0, len(sessions))
	for _, sid := range sessions {
		conv, err := s.FindBySessionID(ctx, sid)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

// ArchiveOlderThan marks conversations idle since before cutoff as
// archived and inactive. Returns the number archived.
func (s *SQLiteStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET is_archived = 1, is_active = 0
		WHERE last_activity < ? AND is_archived = 0`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive conversations: %w", err)
	}
	return res.RowsAffected()
}
