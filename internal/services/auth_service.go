package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/metrics"
	"github.com/BradenHooton/vectradex/internal/models"
	pkgauth "github.com/BradenHooton/vectradex/pkg/auth"
	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
)

// dummyPassword is hashed once so unknown users cost one bcrypt comparison too
const dummyPassword = "vectradex-no-such-user"

// UserRepository defines the user store used by authentication
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PasswordHasher hashes and verifies credentials. Verify returns pkgauth.ErrNoMatch on a wrong password.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

// ThrottlePolicy configures the login attempt throttle
type ThrottlePolicy struct {
	Window      time.Duration
	MaxAttempts int
	Lockout     time.Duration
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

// RegisterInput holds the fields of a new account
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService guards login with two independent attempt throttles, one keyed by
// client address and one by account, and handles registration and password resets
type AuthService struct {
	users        UserRepository
	hasher       PasswordHasher
	tokens       *auth.TokenManager
	mailer       Mailer
	ipThrottle   *AttemptThrottle
	userThrottle *AttemptThrottle
	policy       ThrottlePolicy
	clock        clock.Clock
	timing       *auth.TimingDelay
	metrics      *metrics.Metrics
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	dummyHash    string
}

func NewAuthService(
	users UserRepository,
	hasher PasswordHasher,
	tokens *auth.TokenManager,
	mailer Mailer,
	policy ThrottlePolicy,
	clk clock.Clock,
	timing *auth.TimingDelay,
	m *metrics.Metrics,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &AuthService{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		mailer:       mailer,
		ipThrottle:   NewAttemptThrottle(),
		userThrottle: NewAttemptThrottle(),
		policy:       policy,
		clock:        clk,
		timing:       timing,
		metrics:      m,
		logger:       logger,
		auditLogger:  auditLogger,
		dummyHash:    dummyHash,
	}, nil
}

// Login checks both throttle keys, verifies the password and issues a session token.
// Failures count against both keys; success clears only the account key.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*LoginResponse, error) {
	started := time.Now()
	now := s.clock.Now()
	email = normalizeEmail(email)
	ipKey, userKey := IPKey(ipAddress), UserKey(email)

	if s.ipThrottle.IsLocked(ipKey, now) || s.userThrottle.IsLocked(userKey, now) {
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: "rate_limited",
		})
		return nil, models.ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	verifyErr := s.hasher.Verify(password, hash)
	if verifyErr != nil && !errors.Is(verifyErr, pkgauth.ErrNoMatch) {
		s.logger.Error("stored password hash could not be checked", slog.Any("error", verifyErr))
	}

	if user == nil || verifyErr != nil {
		s.recordFailure(ipKey, userKey, now)
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		event := pkglogger.AuditEvent{
			EventType:     "login_failed",
			Email:         email,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
		}
		if user != nil {
			event.UserID = user.ID
		}
		s.auditLogger.LogAuthAttempt(event)
		s.timing.WaitFrom(started, false)
		return nil, models.ErrInvalidCredentials
	}

	s.userThrottle.Reset(userKey)
	s.updateThrottleGauges()

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.timing.WaitFrom(started, true)

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.AccessTokenExpiry().Seconds()),
		User:        userModelToResponse(user),
	}, nil
}

func (s *AuthService) recordFailure(ipKey, userKey string, now time.Time) {
	p := s.policy
	if s.ipThrottle.RecordFailure(ipKey, now, p.Window, p.MaxAttempts, p.Lockout) {
		s.metrics.Lockouts.WithLabelValues(ScopeIP).Inc()
		s.logger.Warn("login throttle engaged", slog.String("scope", ScopeIP), slog.Duration("lockout", p.Lockout))
	}
	if s.userThrottle.RecordFailure(userKey, now, p.Window, p.MaxAttempts, p.Lockout) {
		s.metrics.Lockouts.WithLabelValues(ScopeUser).Inc()
		s.logger.Warn("login throttle engaged", slog.String("scope", ScopeUser), slog.Duration("lockout", p.Lockout))
	}
	s.updateThrottleGauges()
}

// PruneThrottles drops stale throttle keys and reports how many were removed
func (s *AuthService) PruneThrottles() int {
	now := s.clock.Now()
	removed := s.ipThrottle.Prune(now, s.policy.Window) + s.userThrottle.Prune(now, s.policy.Window)
	s.updateThrottleGauges()
	return removed
}

func (s *AuthService) updateThrottleGauges() {
	s.metrics.ThrottleKeys.WithLabelValues(ScopeIP).Set(float64(s.ipThrottle.Len()))
	s.metrics.ThrottleKeys.WithLabelValues(ScopeUser).Set(float64(s.userThrottle.Len()))
}

// Register creates an account. Role defaults to operador.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, actorID string) (*UserResponse, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: name and email are required", models.ErrValidation)
	}

	role := input.Role
	if role == "" {
		role = models.RoleOperator
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_registered", user.ID, "", map[string]string{
		"role":       user.Role,
		"created_by": actorID,
	})
	return userModelToResponse(user), nil
}

// ForgotPassword mails a reset token when the account exists. The outcome is not
// reported to the caller so accounts cannot be enumerated.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		return nil
	}

	token, err := s.tokens.GenerateResetToken(user.Email)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	expiresAt := s.clock.Now().Add(s.tokens.ResetTokenExpiry())
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token, expiresAt); err != nil {
		s.logger.Error("failed to deliver reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_reset_requested",
		UserID:    user.ID,
		Success:   true,
	})
	return nil
}

// ResetPassword stores a new password for the account named by a valid reset token
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.tokens.ValidateResetToken(token)
	if err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_reset",
			FailureReason: "invalid_token",
		})
		return fmt.Errorf("%w: invalid or expired token", models.ErrValidation)
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_reset",
		UserID:    user.ID,
		Success:   true,
	})
	return nil
}

// CurrentUser returns the account behind an authenticated session
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get current user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}

// EnsureAdmin creates the bootstrap admin account when no user owns email yet.
// Returns true when an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin, err := s.users.Create(ctx, &models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}

	s.auditLogger.LogAccountAction("admin_bootstrapped", admin.ID, "", nil)
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleOperator:
		return true
	}
	return false
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
