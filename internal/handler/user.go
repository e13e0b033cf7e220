package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/foodgram/internal/service"
	"github.com/sakif/foodgram/internal/storage"
)

// UserHandler serves registration, profiles, avatars and subscriptions.
type UserHandler struct {
	svc      *service.UserService
	present  presenter
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

func NewUserHandler(svc *service.UserService, images storage.ImageStore, baseURL string, pageSize int, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:      svc,
		present:  presenter{images: images},
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		logger:   logger,
	}
}

// HTTP: GET /api/users/?page=&limit=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r, h.pageSize)
	profiles, total, err := h.svc.List(r.Context(), viewerID(r), page.size, page.offset())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, h.baseURL, page, total, h.present.users(profiles)))
}

// HandleRegister creates an account. The response never includes the password.
//
// HTTP: POST /api/users/
// REQUEST BODY: {"email", "username", "first_name", "last_name", "password"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdUserResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// HTTP: GET /api/users/{id}/
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.svc.Get(r.Context(), viewerID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.user(*profile))
}

// HTTP: GET /api/users/me/
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me := viewerID(r)
	profile, err := h.svc.Get(r.Context(), me, me)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.user(*profile))
}

// HTTP: POST /api/users/set_password/
// REQUEST BODY: {"new_password": "...", "current_password": "..."}
func (h *UserHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.SetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.SetPassword(r.Context(), viewerID(r), in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: PUT /api/users/me/avatar/
// REQUEST BODY: {"avatar": "data:image/png;base64,..."}
func (h *UserHandler) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Avatar string `json:"avatar"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	key, err := h.svc.SetAvatar(r.Context(), viewerID(r), in.Avatar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": h.present.images.URL(key)})
}

// HTTP: DELETE /api/users/me/avatar/
func (h *UserHandler) HandleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAvatar(r.Context(), viewerID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubscriptions lists the authors the caller follows, each with a
// preview of up to ?recipes_limit= recipes.
//
// HTTP: GET /api/users/subscriptions/?page=&limit=&recipes_limit=
func (h *UserHandler) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r, h.pageSize)
	authors, total, err := h.svc.Subscriptions(r.Context(), viewerID(r), page.size, page.offset(), recipesLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, h.baseURL, page, total, h.present.authors(authors)))
}

// HTTP: POST /api/users/{id}/subscribe/?recipes_limit=
func (h *UserHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}

	author, err := h.svc.Subscribe(r.Context(), viewerID(r), id, recipesLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.author(*author))
}

// HTTP: DELETE /api/users/{id}/subscribe/
func (h *UserHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), viewerID(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit=; a missing or invalid value means all.
func recipesLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("recipes_limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
