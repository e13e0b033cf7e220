package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/service"
	"github.com/sakif/foodgram/internal/storage"
)

// RecipeHandler serves recipe CRUD, the favorite and shopping cart toggles,
// the shopping list download and short links.
type RecipeHandler struct {
	svc      *service.RecipeService
	present  presenter
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

// NewRecipeHandler creates a RecipeHandler. baseURL is the public origin
// used in pagination links, short links and redirects.
func NewRecipeHandler(svc *service.RecipeService, images storage.ImageStore, baseURL string, pageSize int, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:      svc,
		present:  presenter{images: images},
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		logger:   logger,
	}
}

// HandleList returns one page of recipes, newest first.
//
// HTTP: GET /api/recipes/?page=2&limit=6&author=3&tags=breakfast&tags=lunch&is_favorited=1
//
// is_favorited and is_in_shopping_cart filter only for authenticated users;
// anonymous callers get the unfiltered list.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := service.RecipeQuery{
		Tags:             q["tags"],
		IsFavorited:      truthy(q.Get("is_favorited")),
		IsInShoppingCart: truthy(q.Get("is_in_shopping_cart")),
	}
	if raw := q.Get("author"); raw != "" {
		author, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || author <= 0 {
			writeError(w, apperror.ValidationFailed("author", "author must be a user id"))
			return
		}
		query.AuthorID = author
	}

	page := parsePage(r, h.pageSize)
	recipes, total, err := h.svc.List(r.Context(), viewerID(r), query, page.size, page.offset())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPage(r, h.baseURL, page, total, h.present.recipes(recipes)))
}

// HandleCreate publishes a recipe.
//
// HTTP: POST /api/recipes/
// REQUEST BODY:
//
//	{"ingredients": [{"id": 1, "amount": 10}], "tags": [1, 2],
//	 "image": "data:image/png;base64,...", "name": "...", "text": "...", "cooking_time": 15}
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.svc.Create(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.recipe(*recipe))
}

// HTTP: GET /api/recipes/{id}/
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.svc.Get(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.recipe(*recipe))
}

// HandleUpdate changes any subset of a recipe's fields. Only the author may
// do this. Supplying tags or ingredients replaces the whole set.
//
// HTTP: PATCH /api/recipes/{id}/
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	var patch service.RecipePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.svc.Update(r.Context(), viewerID(r), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.recipe(*recipe))
}

// HTTP: DELETE /api/recipes/{id}/
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), viewerID(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddTo returns a handler that puts the recipe into collection c and
// responds 201 with the short recipe.
//
// HTTP: POST /api/recipes/{id}/favorite/, POST /api/recipes/{id}/shopping_cart/
func (h *RecipeHandler) HandleAddTo(c model.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "recipe")
		if err != nil {
			writeError(w, err)
			return
		}

		summary, err := h.svc.AddToCollection(r.Context(), c, viewerID(r), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.present.short(*summary))
	}
}

// HandleRemoveFrom returns a handler that takes the recipe out of c.
//
// HTTP: DELETE /api/recipes/{id}/favorite/, DELETE /api/recipes/{id}/shopping_cart/
func (h *RecipeHandler) HandleRemoveFrom(c model.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "recipe")
		if err != nil {
			writeError(w, err)
			return
		}

		if err := h.svc.RemoveFromCollection(r.Context(), c, viewerID(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleDownloadShoppingCart sends the aggregated shopping list as a text
// file attachment.
//
// HTTP: GET /api/recipes/download_shopping_cart/
func (h *RecipeHandler) HandleDownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.ShoppingList(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ShoppingListFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		h.logger.Error("failed to write shopping list", slog.String("error", err.Error()))
	}
}

// HandleGetLink returns the recipe's short link.
//
// HTTP: GET /api/recipes/{id}/get-link/
// RESPONSE: {"short-link": "https://foodgram.example/s/aB3xYz/"}
func (h *RecipeHandler) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	code, err := h.svc.GetLink(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"short-link": h.baseURL + "/s/" + code + "/",
	})
}

// HandleShortLink redirects a short link to the recipe page.
//
// HTTP: GET /s/{code}/  → 302 Location: <base_url>/recipes/<id>/
func (h *RecipeHandler) HandleShortLink(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.ResolveShortLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, h.baseURL+"/recipes/"+strconv.FormatInt(id, 10)+"/", http.StatusFound)
}

// truthy accepts the query values clients send for boolean filters: 1, true.
func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
