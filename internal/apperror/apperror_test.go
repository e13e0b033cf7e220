package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("recipe", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "AlreadyExists wraps ErrConflict",
			err:       AlreadyExists("recipe is already in favorites"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotPresent wraps ErrNotPresent",
			err:       NotPresent("recipe is not in favorites"),
			target:    ErrNotPresent,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid token"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("adding favorite: %w", AlreadyExists("dup")),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotPresent does NOT match ErrNotFound",
			err:       NotPresent("absent"),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrConflict",
			err:       ValidationFailed("name", "too long"),
			target:    ErrConflict,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("recipe", "42"),
			wantMessage: "recipe not found with id 42",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("tag", "breakfast"),
			wantMessage: "tag conflict with id breakfast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("recipe", "42")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationErrors(t *testing.T) {
	err := ValidationErrors(map[string]string{
		"tags":         "tags is required",
		"cooking_time": "cooking_time must be at least 1",
	})

	if err.Field != "cooking_time" {
		t.Errorf("Field = %q, want %q", err.Field, "cooking_time")
	}
	if err.Message != "cooking_time must be at least 1" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(err.Fields))
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationErrors should wrap ErrValidation")
	}
}
