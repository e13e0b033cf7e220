package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/foodgram/internal/service"
)

// TagHandler serves the read-only tag catalogue. Tags are not paginated.
type TagHandler struct {
	svc    *service.TagService
	logger *slog.Logger
}

func NewTagHandler(svc *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{svc: svc, logger: logger}
}

// HandleList returns every tag ordered by name.
//
// HTTP: GET /api/tags/
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HTTP: GET /api/tags/{id}/
func (h *TagHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tag")
	if err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// IngredientHandler serves ingredient search and lookup.
type IngredientHandler struct {
	svc    *service.IngredientService
	logger *slog.Logger
}

func NewIngredientHandler(svc *service.IngredientService, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{svc: svc, logger: logger}
}

// HandleList searches by ?name=: names starting with the query come first,
// then names containing it. The result is not paginated.
//
// HTTP: GET /api/ingredients/?name=сах
func (h *IngredientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.svc.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

// HTTP: GET /api/ingredients/{id}/
func (h *IngredientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "ingredient")
	if err != nil {
		writeError(w, err)
		return
	}

	ingredient, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}
