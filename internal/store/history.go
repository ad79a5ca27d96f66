package store

import (
	"context"
	"fmt"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message sent by the person asking questions.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	// Role is the author of the message.
	Role Role
	// Content is the text of the message.
	Content string
	// CreatedAt is when the message was persisted.
	CreatedAt time.Time
}

// HistoryStore persists and retrieves conversation history keyed by session
// ID. Implementations must be safe for concurrent use.
type HistoryStore interface {
	// AppendTurn persists one question/answer exchange atomically. A nil
	// answer records only the user question, which is what happens when
	// generation fails: the question survives so the session transcript
	// stays honest.
	AppendTurn(ctx context.Context, sessionID, question string, answer *string) error
	// RecentMessages returns the most recent n messages for the session,
	// ordered oldest-first so they can be prepended to the model message
	// slice directly. If fewer than n messages exist, all are returned.
	RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error)
}

// AppendTurn persists one question/answer exchange in a single transaction,
// creating the conversation row on first use.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID, question string, answer *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: append turn: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO conversations (session_id, created_at, updated_at) VALUES (?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now); err != nil {
		return fmt.Errorf("store: append turn: conversation: %w", err)
	}

	const insert = `INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, sessionID, string(RoleUser), question, now); err != nil {
		return fmt.Errorf("store: append turn: user message: %w", err)
	}
	if answer != nil {
		if _, err := tx.ExecContext(ctx, insert, sessionID, string(RoleAssistant), *answer, now); err != nil {
			return fmt.Errorf("store: append turn: assistant message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: append turn: commit: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent n messages for the session, ordered
// oldest-first. Uses a subquery to select the tail then re-order for injection.
func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error) {
	const q = `
SELECT role, content, created_at FROM (
    SELECT id, role, content, created_at
    FROM   messages
    WHERE  session_id = ?
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var ts int64
		var role string
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("store: recent messages scan: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt = time.Unix(ts, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent messages rows: %w", err)
	}
	return msgs, nil
}
