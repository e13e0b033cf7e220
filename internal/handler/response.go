package handler

// RESPONSE HELPERS:
// Every handler writes through writeJSON and writeError so the API has one
// success shape and one error shape:
//
//	{"error": "not_found", "message": "recipe not found with id 42"}
//	{"error": "validation_error", "message": "...", "fields": {"cooking_time": "..."}}
//
// goccy/go-json is a drop-in replacement for encoding/json with the same
// struct tags and noticeably faster encoding of the nested recipe shapes.

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
)

// maxBodyBytes caps request bodies. A 5 MiB image grows by a third when
// base64 encoded, plus the rest of the recipe.
const maxBodyBytes = 8 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON sends data as JSON with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
//	ErrValidation, ErrConflict, ErrNotPresent → 400
//	ErrUnauthorized → 401, ErrForbidden → 403, ErrNotFound → 404
//	anything else → 500 with a generic message
//
// Toggle conflicts are 400 rather than 409 because clients of this API treat
// "already in favorites" as a bad request, like any other invalid input.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose internal error text: it may contain SQL or file paths.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"
	var fields map[string]string

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
		fields = appErr.Fields
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusBadRequest
		errorType = "already_exists"
	case errors.Is(err, apperror.ErrNotPresent):
		status = http.StatusBadRequest
		errorType = "not_present"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
		w.Header().Set("WWW-Authenticate", "Token")
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Fields:  fields,
	})
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be at most %d MiB", maxBodyBytes>>20))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is empty")
		default:
			return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
		}
	}
	return nil
}

// pathID parses the {id} URL parameter. A malformed id cannot name an
// existing resource, so it is reported as not found.
func pathID(r *http.Request, resource string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}

// viewerID returns the authenticated user's id, or 0 for anonymous requests.
func viewerID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
