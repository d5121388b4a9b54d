package auth

import (
	"context"
	"errors"

	"github.com/crucial707/dermalens/internal/models"
	"github.com/crucial707/dermalens/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore is the persistence the service needs; *repo.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, age *int) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error
}

// ==========================
// Service
// ==========================
type Service struct {
	Users UserStore
	Cost  int
}

func NewService(users UserStore) *Service {
	return &Service{Users: users, Cost: bcrypt.DefaultCost}
}

// ==========================
// Create User
// ==========================
// CreateUser checks for an existing username before hashing and inserting.
// Two concurrent signups for the same name can both pass the check; the
// unique index rejects the loser with repo.ErrDuplicateUser.
func (s *Service) CreateUser(ctx context.Context, username, password string, age *int) (*models.User, error) {
	_, err := s.Users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, repo.ErrDuplicateUser
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, err
	}

	return s.Users.Create(ctx, username, string(hash), age)
}

// ==========================
// Verify Credentials
// ==========================
func (s *Service) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ==========================
// Change Password
// ==========================
func (s *Service) ChangePassword(ctx context.Context, userID int, current, next string) error {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost())
	if err != nil {
		return err
	}
	return s.Users.UpdatePasswordHash(ctx, userID, string(hash))
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}
