// Package main imports the reference data (ingredients and tags) into the
// Foodgram database.
//
// USAGE:
//
//	go run ./cmd/loaddata                          # data/ingredients.json and data/tags.json
//	go run ./cmd/loaddata -ingredients other.json -tags ""
//
// Imports are insert-or-ignore: rows whose name (or tag slug) already exists
// are skipped, so running the command twice is harmless. The database
// location comes from the same DB_PATH setting the server uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/logging"
	"github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/service"
)

// ingredientRecord accepts both the current "measurement_unit" key and the
// older "measurement" one.
type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Measurement     string `json:"measurement"`
}

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "ingredients JSON file (empty to skip)")
	tagsPath := flag.String("tags", "data/tags.json", "tags JSON file (empty to skip)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(context.Background(), cfg, logger, *ingredientsPath, *tagsPath); err != nil {
		logger.Error("loaddata failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, ingredientsPath, tagsPath string) error {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	validator := service.NewValidator()

	if ingredientsPath != "" {
		inputs, err := readIngredients(ingredientsPath)
		if err != nil {
			return err
		}
		n, err := service.NewIngredientService(db, validator, logger).Import(ctx, inputs)
		if err != nil {
			return err
		}
		fmt.Printf("ingredients: %d read, %d inserted\n", len(inputs), n)
	}

	if tagsPath != "" {
		var inputs []service.TagInput
		if err := readJSON(tagsPath, &inputs); err != nil {
			return err
		}
		n, err := service.NewTagService(db, validator, logger).Import(ctx, inputs)
		if err != nil {
			return err
		}
		fmt.Printf("tags: %d read, %d inserted\n", len(inputs), n)
	}

	return nil
}

func readIngredients(path string) ([]service.IngredientInput, error) {
	var records []ingredientRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}

	inputs := make([]service.IngredientInput, 0, len(records))
	for _, rec := range records {
		unit := rec.MeasurementUnit
		if unit == "" {
			unit = rec.Measurement
		}
		inputs = append(inputs, service.IngredientInput{Name: rec.Name, MeasurementUnit: unit})
	}
	return inputs, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
