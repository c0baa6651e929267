package v1

import (
	"context"

	"github.com/gosuda/aegis/internal/domain"
)

// AuthService is the slice of the auth service the API layer needs.
type AuthService interface {
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
}

// AuditReader lists persisted audit records.
type AuditReader interface {
	List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error)
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error)
}
