package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const resetPurpose = "reset"

// TokenManager issues and verifies HS256 session and password reset tokens.
// The two token kinds use separate secrets.
type TokenManager struct {
	secret            []byte
	resetSecret       []byte
	accessTokenExpiry time.Duration
	resetTokenExpiry  time.Duration
	clock             clock.Clock
}

func NewTokenManager(secret, resetSecret string, accessExpiry, resetExpiry time.Duration, clk clock.Clock) *TokenManager {
	return &TokenManager{
		secret:            []byte(secret),
		resetSecret:       []byte(resetSecret),
		accessTokenExpiry: accessExpiry,
		resetTokenExpiry:  resetExpiry,
		clock:             clk,
	}
}

// AccessTokenExpiry is the lifetime of issued session tokens
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

// ResetTokenExpiry is the lifetime of password reset tokens
func (tm *TokenManager) ResetTokenExpiry() time.Duration {
	return tm.resetTokenExpiry
}

// GenerateAccessToken signs a session token whose subject is the user's email
func (tm *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	now := tm.clock.Now()

	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies a session token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	if err := tm.parse(tokenString, claims, tm.secret); err != nil {
		return nil, err
	}

	if claims.Type != models.TokenTypeAccess || claims.Subject == "" {
		return nil, fmt.Errorf("%w: not a session token", models.ErrUnauthorized)
	}
	return claims, nil
}

// GenerateResetToken signs a short-lived password reset token for email
func (tm *TokenManager) GenerateResetToken(email string) (string, error) {
	now := tm.clock.Now()

	claims := &models.ResetClaims{
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strings.ToLower(email),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.resetTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.resetSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return tokenString, nil
}

// ValidateResetToken verifies a reset token and returns the email it was issued for
func (tm *TokenManager) ValidateResetToken(tokenString string) (string, error) {
	claims := &models.ResetClaims{}
	if err := tm.parse(tokenString, claims, tm.resetSecret); err != nil {
		return "", err
	}

	if claims.Purpose != resetPurpose || claims.Subject == "" {
		return "", fmt.Errorf("%w: not a reset token", models.ErrUnauthorized)
	}
	return claims.Subject, nil
}

func (tm *TokenManager) parse(tokenString string, claims jwt.Claims, key []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return models.ErrUnauthorized
	}
	return nil
}
