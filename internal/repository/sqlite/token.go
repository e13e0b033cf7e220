package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.TokenRepository = (*DB)(nil)

func (db *DB) CreateToken(ctx context.Context, token *model.AuthToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating token for user %d: %w", token.UserID, err)
	}
	return nil
}

// TokenActive reports whether token id is still recorded and unexpired.
// Expired rows are left in place; they are harmless and cleaned on logout.
func (db *DB) TokenActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := db.conn.GetContext(ctx, &active,
		`SELECT EXISTS (SELECT 1 FROM auth_tokens WHERE id = ? AND expires_at > ?)`,
		id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("sqlite: checking token %s: %w", id, err)
	}
	return active, nil
}

// DeleteToken revokes a token. Deleting an unknown token is not an error:
// logout is idempotent.
func (db *DB) DeleteToken(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting token %s: %w", id, err)
	}
	return nil
}
