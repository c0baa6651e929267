package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/audit"
	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/guard"
	"github.com/gosuda/aegis/internal/lockout"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountLocked      = errors.New("auth: account temporarily locked")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// Service provides authentication operations. Login attempts consume a
// per-identity rate-limit slot and feed the lockout tracker; every attempt
// leaves an audit record. Password changes run through the guarded executor
// so they get the full transactional envelope.
type Service struct {
	users      domain.UserRepository
	lockouts   *lockout.Tracker
	limiter    guard.Limiter
	trail      *audit.Trail
	executor   *guard.Executor
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(
	users domain.UserRepository,
	lockouts *lockout.Tracker,
	limiter guard.Limiter,
	trail *audit.Trail,
	executor *guard.Executor,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
) *Service {
	return &Service{
		users:      users,
		lockouts:   lockouts,
		limiter:    limiter,
		trail:      trail,
		executor:   executor,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user with username/password. The password is hashed
// with argon2id before storage.
func (s *Service) Register(ctx context.Context, username, password, role string) (*domain.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return user, nil
}

// Login validates username/password and returns access + refresh JWT tokens.
// A locked account is refused before the password is even checked, so locked
// identities learn nothing about credential validity. Each attempt consumes
// one "auth.login" rate-limit slot for the identity, fail closed. Failures
// count toward lockout; success clears it.
func (s *Service) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	locked, err := s.lockouts.IsLocked(ctx, username)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}
	if locked {
		s.auditLogin(ctx, username, domain.OutcomeFailure, domain.SeverityCritical, "account locked")
		return "", "", fmt.Errorf("auth.Login: %w", ErrAccountLocked)
	}

	acquired, err := s.limiter.TryAcquire(ctx, username, "auth.login")
	if err != nil || !acquired {
		s.auditLogin(ctx, username, domain.OutcomeFailure, domain.SeverityWarning, "rate limited")
		return "", "", fmt.Errorf("auth.Login: %w", domain.ErrRateLimited)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		s.recordLoginFailure(ctx, username, "unknown user")
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		s.recordLoginFailure(ctx, username, "bad password")
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if err := s.lockouts.RecordSuccess(ctx, username); err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}
	s.auditLogin(ctx, username, domain.OutcomeSuccess, domain.SeverityNormal, "")

	accessToken, err = IssueAccessToken(s.jwtSecret, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	refreshToken, err = IssueRefreshToken(s.jwtSecret, user.ID, user.Role, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	return accessToken, refreshToken, nil
}

// RefreshToken validates a refresh token and issues a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: invalid user id: %w", err)
	}

	// Verify the user still exists and fetch current role.
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// ChangePassword verifies the current password and stores a new argon2id
// hash. It runs through the guarded executor: transactional, permission
// checked, rate limited, audited, and a wrong current password counts toward
// the user's lockout.
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	opCtx := domain.OperationContext{
		ActorID:             username,
		Action:              "auth.password.change",
		RequiredPermissions: []string{"user.update"},
		LockoutIdentity:     username,
		Payload: map[string]any{
			"username": username,
		},
	}

	_, err := s.executor.Execute(ctx, func(ctx context.Context, _ domain.Tx) (any, error) {
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("auth.ChangePassword: %w", ErrUserNotFound)
		}

		if !verifyPassword(currentPassword, user.PasswordHash) {
			return nil, fmt.Errorf("auth.ChangePassword: %w", ErrInvalidCredentials)
		}

		hash, err := hashPassword(newPassword)
		if err != nil {
			return nil, fmt.Errorf("auth.ChangePassword: %w", err)
		}

		if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return nil, fmt.Errorf("auth.ChangePassword: %w", err)
		}

		return nil, nil
	}, opCtx)
	if err != nil {
		return fmt.Errorf("auth.ChangePassword: %w", err)
	}

	return nil
}

// GetUser returns a user by ID (for middleware use).
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, username, reason string) {
	if _, err := s.lockouts.RecordFailure(ctx, username); err != nil {
		// The audit record below still captures the attempt.
		reason = reason + " (lockout update failed)"
	}
	s.auditLogin(ctx, username, domain.OutcomeFailure, domain.SeverityWarning, reason)
}

func (s *Service) auditLogin(ctx context.Context, username string, outcome domain.Outcome, severity domain.Severity, reason string) {
	detail := map[string]any{}
	if reason != "" {
		detail["reason"] = reason
	}
	s.trail.Record(ctx, &domain.AuditRecord{
		OperationID: uuid.New(),
		ActorID:     username,
		Action:      "auth.login",
		Outcome:     outcome,
		Severity:    severity,
		Detail:      detail,
	})
}
