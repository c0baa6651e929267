package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject user/role into context for PostCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc          func(ctx context.Context, username, password string) (string, string, error)
	refreshTokenFunc   func(ctx context.Context, refreshToken string) (string, error)
	changePasswordFunc func(ctx context.Context, username, currentPassword, newPassword string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	return m.changePasswordFunc(ctx, username, currentPassword, newPassword)
}

// ---------------------------------------------------------------------------
// Mock AuditReader
// ---------------------------------------------------------------------------

type mockAuditReader struct {
	listFunc        func(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error)
	listByActorFunc func(ctx context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error)
}

func (m *mockAuditReader) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	return m.listFunc(ctx, limit, offset)
}

func (m *mockAuditReader) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error) {
	return m.listByActorFunc(ctx, actorID, limit, offset)
}
