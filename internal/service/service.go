// Package service contains the business rules of Foodgram.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, checks ownership, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can inject
// in-memory fakes (see fakes_test.go). They return apperror values and never
// know about status codes.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/storage"
)

// Pagination bounds shared by every paginated listing.
const (
	DefaultListLimit = 6
	MaxListLimit     = 100
)

// listOptions clamps a limit/offset pair into a sane range.
func listOptions(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// deleteImage removes a stored image without failing the caller: the database
// row is already gone or replaced, so an orphaned object is only logged.
func deleteImage(ctx context.Context, images storage.ImageStore, logger *slog.Logger, key string) {
	if key == "" {
		return
	}
	if err := images.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
