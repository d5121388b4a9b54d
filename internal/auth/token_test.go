package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/crucial707/dermalens/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func TestTokens_IssueParse(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)

	raw, err := tokens.Issue(&models.User{ID: 9, Username: "dana"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != 9 {
		t.Errorf("user id: got %d, want 9", id)
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Issue(&models.User{ID: 1})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)

	other, _ := NewTokens([]byte("other"), time.Hour).Issue(&models.User{ID: 1})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": other,
		"alg none":     none,
		"no user id":   noUser,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
