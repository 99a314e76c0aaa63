package prd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists PRD context in the chat_context table so it
// survives restarts, matching its indefinite lifecycle.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool. The chat_context table is
// created by the migrations in migrations/.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Set upserts the PRD text for the chat.
func (s *PostgresStore) Set(ctx context.Context, chatID int64, text string) error {
	const q = `
		INSERT INTO chat_context (chat_id, prd_text, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id)
		DO UPDATE SET prd_text = EXCLUDED.prd_text, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, chatID, text); err != nil {
		return fmt.Errorf("upsert context: %w", err)
	}
	return nil
}

// Get returns the stored PRD text for the chat if any.
func (s *PostgresStore) Get(ctx context.Context, chatID int64) (string, bool, error) {
	var text string
	err := s.db.GetContext(ctx, &text,
		`SELECT prd_text FROM chat_context WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select context: %w", err)
	}
	return text, true, nil
}

// Clear removes the stored text; deleting a missing row is a no-op.
func (s *PostgresStore) Clear(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_context WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return nil
}
