package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser("Ada", "Ada@Example.com", "correcthorse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Expected lowercased email, got %q", user.Email)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
}

func TestNewUserValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		userName string
		email    string
		password string
		want     error
	}{
		{"empty name", "", "a@b.com", "longenough", ErrEmptyName},
		{"empty email", "Ada", "", "longenough", ErrEmptyEmail},
		{"no at sign", "Ada", "nobody.example.com", "longenough", ErrInvalidEmail},
		{"no domain dot", "Ada", "nobody@example", "longenough", ErrInvalidEmail},
		{"short password", "Ada", "a@b.com", "short", ErrPasswordTooShort},
		{"long password", "Ada", "a@b.com", strings.Repeat("x", 73), ErrPasswordTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.userName, tc.email, tc.password)
			if err != tc.want {
				t.Errorf("Expected error %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserValidateExistingHash(t *testing.T) {
	t.Parallel()

	user := &User{
		ID:             uuid.New(),
		Name:           "Ada",
		Email:          "ada@example.com",
		HashedPassword: "$2a$10$fakehash",
	}

	if err := user.Validate(); err != nil {
		t.Errorf("Expected stored user with hash to validate, got %v", err)
	}

	user.HashedPassword = ""
	if err := user.Validate(); err != ErrEmptyPassword {
		t.Errorf("Expected error %v, got %v", ErrEmptyPassword, err)
	}
}
