package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/dermalens/internal/models"
)

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, username, password_hash, age, created_at`

// ==========================
// Create User
// ==========================
// Create inserts a user with an already-hashed password. A unique-index
// rejection is reported as ErrDuplicateUser.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string, age *int) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, age)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.DB.QueryRowContext(ctx, query, username, passwordHash, age))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

// ==========================
// Get By Username
// ==========================
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`

	return scanUser(r.DB.QueryRowContext(ctx, query, username))
}

// ==========================
// Update Password Hash
// ==========================
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		user    models.User
		age     sql.NullInt64
		created timestamp
	)

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &age, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if age.Valid {
		a := int(age.Int64)
		user.Age = &a
	}
	user.CreatedAt = created.Time

	return &user, nil
}
