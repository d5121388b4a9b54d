package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/dermalens/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

type HistoryRepo struct {
	DB *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{DB: db}
}

// ========================
// CREATE RECORD
// ========================

func (r *HistoryRepo) Create(ctx context.Context, userID int, imagePath, analysis string) (*models.HistoryRecord, error) {
	rec := models.HistoryRecord{
		UserID:    userID,
		ImagePath: imagePath,
		Analysis:  analysis,
	}
	var created timestamp
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO history (user_id, image_path, analysis)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		userID, imagePath, analysis,
	).Scan(&rec.ID, &created)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = created.Time
	return &rec, nil
}

// ========================
// LIST RECORDS FOR OWNER
// ========================

// ListByUser returns the user's records, newest first. The id breaks ties
// between rows created within the same clock tick.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID int) ([]models.HistoryRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, image_path, analysis, created_at
		 FROM history
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var (
			rec     models.HistoryRecord
			created timestamp
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ImagePath, &rec.Analysis, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = created.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ========================
// GET RECORD FOR OWNER
// ========================

// GetForUser returns the record only when userID owns it; a foreign record
// is indistinguishable from a missing one.
func (r *HistoryRepo) GetForUser(ctx context.Context, id, userID int) (*models.HistoryRecord, error) {
	return getForUser(ctx, r.DB, id, userID)
}

// ========================
// DELETE RECORD FOR OWNER
// ========================

// DeleteForUser removes the record inside one transaction. beforeDelete runs
// after the ownership check and before the row is deleted; if it or any
// later step fails the transaction is rolled back.
func (r *HistoryRepo) DeleteForUser(ctx context.Context, id, userID int, beforeDelete func(models.HistoryRecord) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rec, err := getForUser(ctx, tx, id, userID)
	if err != nil {
		return err
	}

	if beforeDelete != nil {
		if err := beforeDelete(*rec); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getForUser(ctx context.Context, q queryRower, id, userID int) (*models.HistoryRecord, error) {
	var (
		rec     models.HistoryRecord
		created timestamp
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, image_path, analysis, created_at
		 FROM history
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.ImagePath, &rec.Analysis, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.CreatedAt = created.Time
	return &rec, nil
}
