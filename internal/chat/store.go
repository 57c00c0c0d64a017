package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invagro/internal/ai"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionForbidden means the session token belongs to another user.
var ErrSessionForbidden = errors.New("chat session belongs to another user")

// Message is one persisted chat entry.
type Message struct {
	Role      ai.Role
	Content   string
	CreatedAt time.Time
}

// Store persists sessions, their append-only history and the rolling summary.
type Store interface {
	// EnsureSession creates the session or touches updated_at.
	EnsureSession(ctx context.Context, sessionID, username string) error
	AppendMessage(ctx context.Context, sessionID string, role ai.Role, content string) error
	// RecentMessages returns the last n messages in chronological order.
	RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	// MessagesBefore returns every message except the newest keep, oldest first.
	MessagesBefore(ctx context.Context, sessionID string, keep int) ([]Message, error)
	// Summary returns "" when the session has none.
	Summary(ctx context.Context, sessionID string) (string, error)
	// SaveSummary overwrites the summary unless a newer one covers more messages.
	SaveSummary(ctx context.Context, sessionID, text string, covered int) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) EnsureSession(ctx context.Context, sessionID, username string) error {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
		WHERE chat_sessions.username = EXCLUDED.username
		RETURNING id
	`, sessionID, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionForbidden
		}
		return fmt.Errorf("failed to ensure chat session: %w", err)
	}
	return nil
}

func (s *pgStore) AppendMessage(ctx context.Context, sessionID string, role ai.Role, content string) error {
	_, err := s.pool.Exec(ctx, `
		WITH m AS (
			INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)
			RETURNING session_id
		)
		UPDATE chat_sessions SET updated_at = NOW() WHERE id IN (SELECT session_id FROM m)
	`, sessionID, string(role), content)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (s *pgStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`, sessionID, n)
}

func (s *pgStore) MessagesBefore(ctx context.Context, sessionID string, keep int) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at,
			       ROW_NUMBER() OVER (ORDER BY created_at DESC, id DESC) AS rn
			FROM chat_messages
			WHERE session_id = $1
		) ranked
		WHERE rn > $2
		ORDER BY created_at, id
	`, sessionID, keep)
}

func (s *pgStore) queryMessages(ctx context.Context, sql string, args ...any) ([]Message, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Role = ai.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *pgStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}

func (s *pgStore) Summary(ctx context.Context, sessionID string) (string, error) {
	var text string
	err := s.pool.QueryRow(ctx, `SELECT summary_text FROM chat_summaries WHERE session_id = $1`, sessionID).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load chat summary: %w", err)
	}
	return text, nil
}

func (s *pgStore) SaveSummary(ctx context.Context, sessionID, text string, covered int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_summaries (session_id, summary_text, covered_messages)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET summary_text = EXCLUDED.summary_text,
		    covered_messages = EXCLUDED.covered_messages,
		    updated_at = NOW()
		WHERE chat_summaries.covered_messages < EXCLUDED.covered_messages
	`, sessionID, text, covered)
	if err != nil {
		return fmt.Errorf("failed to save chat summary: %w", err)
	}
	return nil
}
