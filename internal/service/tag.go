package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// TagInput is one tag in an import file.
type TagInput struct {
	Name  string `json:"name"  validate:"required,max=32"`
	Slug  string `json:"slug"  validate:"required,max=32,slug"`
	Color string `json:"color" validate:"required,hexcolor6"`
}

// TagService serves the read-only tag catalogue and its bulk import.
type TagService struct {
	repo      repository.TagRepository
	validator *Validator
	logger    *slog.Logger
}

func NewTagService(repo repository.TagRepository, validator *Validator, logger *slog.Logger) *TagService {
	return &TagService{repo: repo, validator: validator, logger: logger}
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *TagService) Get(ctx context.Context, id int64) (*model.Tag, error) {
	return s.repo.GetTag(ctx, id)
}

// Import validates every entry before inserting any, then inserts the ones
// whose name and slug are new. It returns how many rows were added.
func (s *TagService) Import(ctx context.Context, inputs []TagInput) (int, error) {
	tags := make([]model.Tag, 0, len(inputs))
	for i, in := range inputs {
		in.Name = strings.TrimSpace(in.Name)
		in.Slug = strings.TrimSpace(in.Slug)
		in.Color = strings.ToUpper(strings.TrimSpace(in.Color))
		if err := s.validator.Struct(in); err != nil {
			return 0, fmt.Errorf("tag #%d: %w", i+1, err)
		}
		tags = append(tags, model.Tag{Name: in.Name, Slug: in.Slug, Color: in.Color})
	}

	n, err := s.repo.ImportTags(ctx, tags)
	if err != nil {
		return 0, fmt.Errorf("importing tags: %w", err)
	}

	s.logger.Info("tags imported",
		slog.Int("read", len(tags)),
		slog.Int("inserted", n),
	)
	return n, nil
}
