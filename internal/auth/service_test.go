package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/dermalens/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "username", "password_hash", "age", "created_at"}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(repo.NewUserRepo(db))
	svc.Cost = bcrypt.MinCost
	return svc, mock
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestCreateUser(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", sqlmock.AnyArg(), 29).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "alice", "$2a$hash", 29, time.Now()))

	age := 29
	user, err := svc.CreateUser(context.Background(), "alice", "s3cret", &age)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != 1 || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "alice", "x", nil, time.Now()))

	_, err := svc.CreateUser(context.Background(), "alice", "other", nil)
	if !errors.Is(err, repo.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	// No INSERT was expected, so a second row was never attempted.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestVerify(t *testing.T) {
	svc, mock := newTestService(t)
	hash := hashOf(t, "right")

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "bob", hash, nil, time.Now()))
	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "bob", hash, nil, time.Now()))
	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(userCols))

	user, err := svc.Verify(context.Background(), "bob", "right")
	if err != nil || user.ID != 2 {
		t.Fatalf("Verify good password: user=%+v err=%v", user, err)
	}
	if _, err := svc.Verify(context.Background(), "bob", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Verify(context.Background(), "nobody", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestVerify_StoreError(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("bob").
		WillReturnError(errors.New("connection reset"))

	_, err := svc.Verify(context.Background(), "bob", "x")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected raw store error, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, mock := newTestService(t)
	hash := hashOf(t, "old")

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "carol", hash, nil, time.Now()))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.ChangePassword(context.Background(), 3, "old", "new-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, "carol", hashOf(t, "old"), nil, time.Now()))

	if err := svc.ChangePassword(context.Background(), 3, "guess", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
