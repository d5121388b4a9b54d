package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crucial707/dermalens/internal/metrics"
	"github.com/crucial707/dermalens/internal/models"
	"github.com/crucial707/dermalens/internal/repo"
)

var (
	// ErrEmptyAnalysis rejects a record with no analysis text.
	ErrEmptyAnalysis = errors.New("analysis text is empty")
	// ErrStorage marks a rolled-back delete. The wrapped message says what failed.
	ErrStorage = errors.New("storage error")
)

// Store is the record persistence the service needs; *repo.HistoryRepo satisfies it.
type Store interface {
	Create(ctx context.Context, userID int, imagePath, analysis string) (*models.HistoryRecord, error)
	ListByUser(ctx context.Context, userID int) ([]models.HistoryRecord, error)
	DeleteForUser(ctx context.Context, id, userID int, beforeDelete func(models.HistoryRecord) error) error
}

// Files removes stored images; *upload.Store satisfies it.
type Files interface {
	Remove(relPath string) error
}

type Service struct {
	Records Store
	Files   Files
	Logger  *slog.Logger
}

func NewService(records Store, files Files, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Records: records, Files: files, Logger: logger}
}

// Append records one analysis for userID.
func (s *Service) Append(ctx context.Context, userID int, imagePath, analysis string) (*models.HistoryRecord, error) {
	if strings.TrimSpace(analysis) == "" {
		return nil, ErrEmptyAnalysis
	}
	return s.Records.Create(ctx, userID, imagePath, analysis)
}

// ListFor returns the user's records, newest first.
func (s *Service) ListFor(ctx context.Context, userID int) ([]models.HistoryRecord, error) {
	return s.Records.ListByUser(ctx, userID)
}

// Delete removes a record owned by userID together with its image file.
// repo.ErrNotFound covers both a missing record and one owned by someone
// else. Any later failure rolls the row back and is returned wrapping
// ErrStorage; the file may already be gone at that point.
func (s *Service) Delete(ctx context.Context, userID, recordID int) error {
	err := s.Records.DeleteForUser(ctx, recordID, userID, func(rec models.HistoryRecord) error {
		if rec.ImagePath == "" {
			return nil
		}
		return s.Files.Remove(rec.ImagePath)
	})
	switch {
	case err == nil:
		metrics.IncHistoryDeletes("deleted")
		return nil
	case errors.Is(err, repo.ErrNotFound):
		metrics.IncHistoryDeletes("not_found")
		return err
	default:
		metrics.IncHistoryDeletes("error")
		s.Logger.Error("history delete rolled back",
			slog.Int("user_id", userID),
			slog.Int("record_id", recordID),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}
