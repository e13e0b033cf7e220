package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.IngredientRepository = (*DB)(nil)

// SearchIngredients implements the two-tier name search.
//
// CASE FOLDING:
// SQLite's LIKE and lower() only fold ASCII, and most ingredient names are
// Cyrillic. name_lower is therefore computed with strings.ToLower on insert and
// the query is folded the same way, so instr() compares like with like.
//
// instr() returns the 1-based position of the first match: 1 means a prefix
// match, > 1 a match elsewhere. Ranking on that position puts every prefix
// match ahead of every contains-only match in a single pass, and a row can
// only appear once.
func (db *DB) SearchIngredients(ctx context.Context, query string) ([]model.Ingredient, error) {
	ingredients := []model.Ingredient{}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		err := db.conn.SelectContext(ctx, &ingredients,
			`SELECT id, name, measurement_unit FROM ingredients ORDER BY name, measurement_unit`)
		if err != nil {
			return nil, fmt.Errorf("sqlite: listing ingredients: %w", err)
		}
		return ingredients, nil
	}

	err := db.conn.SelectContext(ctx, &ingredients,
		`SELECT id, name, measurement_unit
		 FROM ingredients
		 WHERE instr(name_lower, ?) > 0
		 ORDER BY CASE WHEN instr(name_lower, ?) = 1 THEN 0 ELSE 1 END, name, measurement_unit`,
		q, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching ingredients %q: %w", query, err)
	}
	return ingredients, nil
}

func (db *DB) GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	var i model.Ingredient
	err := db.conn.GetContext(ctx, &i,
		`SELECT id, name, measurement_unit FROM ingredients WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "ingredient", id, fmt.Sprintf("getting ingredient %d", id))
	}
	return &i, nil
}

// FindIngredients returns the ingredients among ids that exist.
func (db *DB) FindIngredients(ctx context.Context, ids []int64) ([]model.Ingredient, error) {
	ingredients := []model.Ingredient{}
	if len(ids) == 0 {
		return ingredients, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, name, measurement_unit FROM ingredients WHERE id IN (?) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building ingredient lookup: %w", err)
	}
	if err := db.conn.SelectContext(ctx, &ingredients, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: finding ingredients: %w", err)
	}
	return ingredients, nil
}

// ImportIngredients bulk-inserts ingredients, skipping (name, unit) pairs that
// already exist, and returns how many rows were added.
func (db *DB) ImportIngredients(ctx context.Context, ingredients []model.Ingredient) (int, error) {
	inserted := 0
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx,
			`INSERT OR IGNORE INTO ingredients (name, measurement_unit, name_lower) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: preparing ingredient insert: %w", err)
		}
		defer stmt.Close()

		for _, ing := range ingredients {
			res, err := stmt.ExecContext(ctx, ing.Name, ing.MeasurementUnit, strings.ToLower(ing.Name))
			if err != nil {
				return fmt.Errorf("sqlite: importing ingredient %s: %w", ing.Name, err)
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

// DeleteIngredient removes an ingredient that no recipe uses. Ingredients
// referenced by a recipe are protected by the foreign key and reported as a
// conflict instead of cascading.
func (db *DB) DeleteIngredient(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id)
	if err != nil {
		if constraintViolation(err) == foreignKeyConstraint {
			return apperror.Conflict("ingredient", fmt.Sprint(id))
		}
		return fmt.Errorf("sqlite: deleting ingredient %d: %w", id, err)
	}
	return expectOne(res, "ingredient", id)
}
