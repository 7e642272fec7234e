package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{name: "valid password", password: "Turno2024a", shouldFail: false},
		{name: "too short", password: "ab1", shouldFail: true},
		{name: "missing digit", password: "somenteletras", shouldFail: true},
		{name: "missing letter", password: "1234567890", shouldFail: true},
		{name: "common password rejected", password: "Senha123", shouldFail: true},
		{name: "too long", password: strings.Repeat("a1", 40), shouldFail: true},
		{name: "accented letters count", password: "manutenção9", shouldFail: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail {
				require.Error(t, err)
				assert.Equal(t, "invalid password", err.Error())
				var pve *PasswordValidationError
				assert.True(t, errors.As(err, &pve))
				assert.NotEmpty(t, pve.Errors)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Turno2024a")
	require.NoError(t, err)
	assert.NotEqual(t, "Turno2024a", hash)

	assert.NoError(t, h.Verify("Turno2024a", hash))
	assert.ErrorIs(t, h.Verify("errada123", hash), ErrNoMatch)
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash("")
	assert.Error(t, err)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	err := NewBcryptHasher(bcrypt.MinCost).Verify("Turno2024a", "not-a-hash")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoMatch))
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).Cost)
	assert.Equal(t, 10, NewBcryptHasher(10).Cost)
}
