package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Users UserLookup
}

// ==========================
// Get Current User
// ==========================
// Me returns the caller's own account. There is no route to read another user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			JSONError(w, "user not found", http.StatusNotFound)
			return
		}
		slog.Error("load current user failed", "user_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
