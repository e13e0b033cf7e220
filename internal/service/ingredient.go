package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// IngredientInput is one ingredient in an import file.
type IngredientInput struct {
	Name            string `json:"name"             validate:"required,max=128"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=64"`
}

type IngredientService struct {
	repo      repository.IngredientRepository
	validator *Validator
	logger    *slog.Logger
}

func NewIngredientService(repo repository.IngredientRepository, validator *Validator, logger *slog.Logger) *IngredientService {
	return &IngredientService{repo: repo, validator: validator, logger: logger}
}

// Search returns prefix matches of name first, then the remaining substring
// matches. An empty name lists everything.
func (s *IngredientService) Search(ctx context.Context, name string) ([]model.Ingredient, error) {
	return s.repo.SearchIngredients(ctx, strings.TrimSpace(name))
}

func (s *IngredientService) Get(ctx context.Context, id int64) (*model.Ingredient, error) {
	return s.repo.GetIngredient(ctx, id)
}

// Import inserts new (name, unit) pairs and skips known ones, so loading the
// same file twice is harmless.
func (s *IngredientService) Import(ctx context.Context, inputs []IngredientInput) (int, error) {
	ingredients := make([]model.Ingredient, 0, len(inputs))
	for i, in := range inputs {
		in.Name = strings.TrimSpace(in.Name)
		in.MeasurementUnit = strings.TrimSpace(in.MeasurementUnit)
		if err := s.validator.Struct(in); err != nil {
			return 0, fmt.Errorf("ingredient #%d: %w", i+1, err)
		}
		ingredients = append(ingredients, model.Ingredient{
			Name:            in.Name,
			MeasurementUnit: in.MeasurementUnit,
		})
	}

	n, err := s.repo.ImportIngredients(ctx, ingredients)
	if err != nil {
		return 0, fmt.Errorf("importing ingredients: %w", err)
	}

	s.logger.Info("ingredients imported",
		slog.Int("read", len(ingredients)),
		slog.Int("inserted", n),
	)
	return n, nil
}
