package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error"},
		{"already in collection", apperror.AlreadyExists("recipe is already in favorites"), http.StatusBadRequest, "already_exists"},
		{"not in collection", apperror.NotPresent("recipe is not in favorites"), http.StatusBadRequest, "not_present"},
		{"unauthorized", apperror.Unauthorized("invalid token"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("only the author can change this recipe"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("recipe", "42"), http.StatusNotFound, "not_found"},
		{"wrapped", fmt.Errorf("updating: %w", apperror.NotFound("recipe", "42")), http.StatusNotFound, "not_found"},
		{"unknown", errors.New("sqlite: disk I/O error at /var/lib/foodgram.db"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.NotContains(t, body.Message, "/var/lib")
		})
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.ValidationErrors(map[string]string{
		"cooking_time": "cooking_time must be at least 1",
		"tags":         "tags is required",
	}))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Fields, 2)
	assert.Equal(t, "tags is required", body.Fields["tags"])
}

func TestWriteError_UnauthorizedChallenge(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.Unauthorized("invalid token"))
	assert.Equal(t, "Token", rr.Header().Get("WWW-Authenticate"))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Борщ"}`))
		require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
		assert.Equal(t, "Борщ", dst.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
