package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.SubscriptionRepository = (*DB)(nil)

const recipesCountColumn = `(SELECT COUNT(*) FROM recipes r WHERE r.author_id = u.id) AS recipes_count`

// Subscribe records that userID follows authorID. Following yourself is
// rejected by the table's CHECK constraint even if a caller skips the
// service-level check.
func (db *DB) Subscribe(ctx context.Context, userID, authorID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		userID, authorID, time.Now().UTC())
	if err != nil {
		switch constraintViolation(err) {
		case uniqueConstraint:
			return apperror.AlreadyExists(fmt.Sprintf("already subscribed to user %d", authorID))
		case checkConstraint:
			return apperror.ValidationFailed("author", "you cannot subscribe to yourself")
		case foreignKeyConstraint:
			return apperror.NotFound("user", fmt.Sprint(authorID))
		}
		return fmt.Errorf("sqlite: subscribing user %d to %d: %w", userID, authorID, err)
	}
	return nil
}

func (db *DB) Unsubscribe(ctx context.Context, userID, authorID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		return fmt.Errorf("sqlite: unsubscribing user %d from %d: %w", userID, authorID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotPresent(fmt.Sprintf("not subscribed to user %d", authorID))
	}
	return nil
}

// ListSubscriptions returns the authors userID follows, most recent
// subscription first, with each author's recipe count. Recipes previews are
// left for the caller, which knows the requested limit.
func (db *DB) ListSubscriptions(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.AuthorWithRecipes, int, error) {
	var total int
	err := db.conn.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting subscriptions of user %d: %w", userID, err)
	}

	authors := make([]model.AuthorWithRecipes, 0, opts.Limit)
	err = db.conn.SelectContext(ctx, &authors,
		`SELECT `+userColumns+`, 1 AS is_subscribed, `+recipesCountColumn+`
		 FROM subscriptions s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.user_id = ?
		 ORDER BY s.created_at DESC, s.id DESC
		 LIMIT ? OFFSET ?`, userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing subscriptions of user %d: %w", userID, err)
	}
	return authors, total, nil
}

// GetAuthorWithCount returns one author as seen by viewerID with their recipe count.
func (db *DB) GetAuthorWithCount(ctx context.Context, viewerID, authorID int64) (*model.AuthorWithRecipes, error) {
	var a model.AuthorWithRecipes
	err := db.conn.GetContext(ctx, &a,
		`SELECT `+userColumns+`, `+isSubscribedColumn+`, `+recipesCountColumn+`
		 FROM users u WHERE u.id = ?`, viewerID, authorID)
	if err != nil {
		return nil, notFound(err, "user", authorID, fmt.Sprintf("getting author %d", authorID))
	}
	return &a, nil
}
