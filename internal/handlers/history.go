package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/dermalens/internal/history"
	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/models"
	"github.com/crucial707/dermalens/internal/repo"
	"github.com/go-chi/chi/v5"
)

const (
	msgItemDeleted  = "History item deleted"
	msgItemNotFound = "Item not found or unauthorized"
)

// ==========================
// History Handler
// ==========================
type HistoryHandler struct {
	History *history.Service
}

// ==========================
// List History
// ==========================
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.History.ListFor(r.Context(), userID)
	if err != nil {
		slog.Error("list history failed", "user_id", userID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	items := make([]models.HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.Item())
	}
	writeJSON(w, http.StatusOK, items)
}

// ==========================
// Delete History Item
// ==========================
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeResult(w, http.StatusNotFound, false, msgItemNotFound)
		return
	}

	err = h.History.Delete(r.Context(), userID, id)
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, true, msgItemDeleted)
	case errors.Is(err, repo.ErrNotFound):
		writeResult(w, http.StatusNotFound, false, msgItemNotFound)
	case errors.Is(err, history.ErrStorage):
		writeResult(w, http.StatusInternalServerError, false, err.Error())
	default:
		slog.Error("delete history failed", "user_id", userID, "record_id", id, "error", err)
		writeResult(w, http.StatusInternalServerError, false, ErrMessageInternal)
	}
}
