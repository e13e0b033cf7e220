package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
)

func TestCollection_AddRemove(t *testing.T) {
	for _, c := range []model.Collection{model.Favorites, model.ShoppingCart} {
		t.Run(string(c), func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			tags, ings := seedReference(t, db)
			author := createTestUser(t, db, "author")
			fan := createTestUser(t, db, "fan")
			recipe := createTestRecipe(t, db, author, "cake",
				[]int64{tags["dinner"].ID},
				[]model.IngredientAmount{{IngredientID: ings["Сахар"].ID, Amount: 100}})

			if err := db.AddToCollection(ctx, c, fan.ID, recipe.ID); err != nil {
				t.Fatalf("AddToCollection() error = %v", err)
			}
			if err := db.AddToCollection(ctx, c, fan.ID, recipe.ID); !errors.Is(err, apperror.ErrConflict) {
				t.Errorf("AddToCollection() twice error = %v, want ErrConflict", err)
			}
			if n, _ := db.CountInCollection(ctx, c, fan.ID, recipe.ID); n != 1 {
				t.Errorf("CountInCollection() = %d, want 1", n)
			}

			if err := db.RemoveFromCollection(ctx, c, fan.ID, recipe.ID); err != nil {
				t.Fatalf("RemoveFromCollection() error = %v", err)
			}
			if err := db.RemoveFromCollection(ctx, c, fan.ID, recipe.ID); !errors.Is(err, apperror.ErrNotPresent) {
				t.Errorf("RemoveFromCollection() twice error = %v, want ErrNotPresent", err)
			}
			if err := db.AddToCollection(ctx, c, fan.ID, 999); !errors.Is(err, apperror.ErrNotFound) {
				t.Errorf("AddToCollection(missing recipe) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCollection_ConcurrentAddsKeepOneRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tags, ings := seedReference(t, db)
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")
	recipe := createTestRecipe(t, db, author, "cake",
		[]int64{tags["dinner"].ID},
		[]model.IngredientAmount{{IngredientID: ings["Сахар"].ID, Amount: 100}})

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.AddToCollection(ctx, model.Favorites, fan.ID, recipe.ID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, apperror.ErrConflict) {
				t.Errorf("AddToCollection() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("%d adds succeeded, want exactly 1", succeeded)
	}
	if n, _ := db.CountInCollection(ctx, model.Favorites, fan.ID, recipe.ID); n != 1 {
		t.Errorf("CountInCollection() = %d, want 1", n)
	}
}

func TestCollection_UnknownCollection(t *testing.T) {
	db := newTestDB(t)

	err := db.AddToCollection(context.Background(), model.Collection("recipes; DROP TABLE users"), 1, 1)
	if err == nil {
		t.Fatal("AddToCollection() with unknown collection should fail")
	}
}

func TestShoppingItems_RawLines(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tags, ings := seedReference(t, db)
	author := createTestUser(t, db, "author")
	shopper := createTestUser(t, db, "shopper")

	r1 := createTestRecipe(t, db, author, "tea",
		[]int64{tags["breakfast"].ID},
		[]model.IngredientAmount{{IngredientID: ings["Сахар"].ID, Amount: 30}})
	r2 := createTestRecipe(t, db, author, "jam",
		[]int64{tags["dinner"].ID},
		[]model.IngredientAmount{
			{IngredientID: ings["Сахар"].ID, Amount: 50},
			{IngredientID: ings["Молоко"].ID, Amount: 200},
		})
	createTestRecipe(t, db, author, "not in cart",
		[]int64{tags["dinner"].ID},
		[]model.IngredientAmount{{IngredientID: ings["Яйца"].ID, Amount: 2}})

	for _, id := range []int64{r1.ID, r2.ID} {
		if err := db.AddToCollection(ctx, model.ShoppingCart, shopper.ID, id); err != nil {
			t.Fatalf("AddToCollection() error = %v", err)
		}
	}

	items, err := db.ShoppingItems(ctx, shopper.ID)
	if err != nil {
		t.Fatalf("ShoppingItems() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("ShoppingItems() returned %d lines, want 3: %+v", len(items), items)
	}
	sugar := 0
	for _, it := range items {
		if it.Name == "Яйца" {
			t.Error("ingredient from a recipe outside the cart was included")
		}
		if it.Name == "Сахар" {
			sugar += it.Amount
		}
	}
	if sugar != 80 {
		t.Errorf("sugar total = %d, want 80", sugar)
	}

	empty, err := db.ShoppingItems(ctx, author.ID)
	if err != nil {
		t.Fatalf("ShoppingItems() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty cart returned %d lines", len(empty))
	}
}

// CountInCollection reports how many rows link the user to the recipe in c.
func (db *DB) CountInCollection(ctx context.Context, c model.Collection, userID, recipeID int64) (int, error) {
	table, err := collectionTable(c)
	if err != nil {
		return 0, err
	}

	var n int
	err = db.conn.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM `+table+` WHERE user_id = ? AND recipe_id = ?`, userID, recipeID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting %s rows: %w", table, err)
	}
	return n, nil
}
