package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/upload"
	"github.com/go-chi/chi/v5"
)

// UploadHandler serves stored images back to the user who uploaded them.
type UploadHandler struct {
	Files *upload.Store
}

// Serve handles GET /static/uploads/*. Directories and other users' files are
// reported as missing.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := chi.URLParam(r, "*")
	relPath := "uploads/" + rest
	if rest == "" || strings.HasSuffix(rest, "/") || !h.Files.OwnedBy(relPath, userID) {
		http.NotFound(w, r)
		return
	}

	full, err := h.Files.Resolve(relPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}
