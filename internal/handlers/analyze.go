package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/crucial707/dermalens/internal/analysis"
	"github.com/crucial707/dermalens/internal/history"
	"github.com/crucial707/dermalens/internal/middleware"
	"github.com/crucial707/dermalens/internal/upload"
)

const (
	msgNoFilePart     = "No file part"
	msgNoSelectedFile = "No selected file"
	msgEmptyFile      = "Uploaded file is empty"
	analysisErrPrefix = "An analysis error occurred: "

	// multipartMemory is how much of the form is buffered in memory; the
	// rest spills to temporary files.
	multipartMemory = 8 << 20
)

// ==========================
// Analyze Handler
// ==========================
type AnalyzeHandler struct {
	Files    *upload.Store
	Analyzer analysis.Analyzer
	History  *history.Service
}

// Analyze stores the uploaded image, asks the model for a description and
// records the result. The stored file is removed again if the model call or
// the history insert fails.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSONError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, msgNoFilePart, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A file input submitted with nothing chosen arrives as a part with an
		// empty filename, which the multipart reader files under Value.
		if _, present := r.MultipartForm.Value["file"]; present {
			JSONError(w, msgNoSelectedFile, http.StatusBadRequest)
			return
		}
		JSONError(w, msgNoFilePart, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		JSONError(w, msgNoSelectedFile, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("analyze: read upload failed", "user_id", userID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		JSONError(w, msgEmptyFile, http.StatusBadRequest)
		return
	}

	relPath, err := h.Files.Save(userID, header.Filename, data)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidFile) {
			JSONError(w, "Invalid file name", http.StatusBadRequest)
			return
		}
		slog.Error("analyze: store upload failed", "user_id", userID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	text, err := h.Analyzer.Analyze(r.Context(), data)
	if err != nil {
		h.discard(relPath)
		slog.Warn("analyze: model call failed", "user_id", userID, "error", err)
		JSONError(w, analysisErrPrefix+err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.History.Append(r.Context(), userID, relPath, text); err != nil {
		h.discard(relPath)
		slog.Error("analyze: record history failed", "user_id", userID, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": text})
}

func (h *AnalyzeHandler) discard(relPath string) {
	if err := h.Files.Remove(relPath); err != nil {
		slog.Warn("analyze: remove orphaned upload failed", "path", relPath, "error", err)
	}
}
