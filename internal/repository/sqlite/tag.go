package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags := []model.Tag{}
	if err := db.conn.SelectContext(ctx, &tags,
		`SELECT id, name, slug, color FROM tags ORDER BY name`); err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	return tags, nil
}

func (db *DB) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.GetContext(ctx, &t,
		`SELECT id, name, slug, color FROM tags WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "tag", id, fmt.Sprintf("getting tag %d", id))
	}
	return &t, nil
}

// FindTags returns the tags among ids that exist, in name order.
func (db *DB) FindTags(ctx context.Context, ids []int64) ([]model.Tag, error) {
	tags := []model.Tag{}
	if len(ids) == 0 {
		return tags, nil
	}

	// sqlx.In expands the slice into (?, ?, ...) with one argument per element.
	query, args, err := sqlx.In(
		`SELECT id, name, slug, color FROM tags WHERE id IN (?) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building tag lookup: %w", err)
	}
	if err := db.conn.SelectContext(ctx, &tags, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: finding tags: %w", err)
	}
	return tags, nil
}

// ImportTags inserts tags in one transaction, ignoring duplicates by name or slug.
func (db *DB) ImportTags(ctx context.Context, tags []model.Tag) (int, error) {
	inserted := 0
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tags {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO tags (name, slug, color) VALUES (?, ?, ?)`,
				t.Name, t.Slug, t.Color)
			if err != nil {
				return fmt.Errorf("sqlite: importing tag %s: %w", t.Slug, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: checking rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
