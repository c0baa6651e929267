package permission

import (
	"context"
	"fmt"
)

// RoleGrants resolves an actor's role and expands it to permission strings.
// The resolver typically wraps the user repository.
type RoleGrants struct {
	resolve func(ctx context.Context, actorID string) (string, error)
	roles   map[string][]string
}

func NewRoleGrants(resolve func(ctx context.Context, actorID string) (string, error), roles map[string][]string) *RoleGrants {
	return &RoleGrants{resolve: resolve, roles: roles}
}

func (g *RoleGrants) PermissionsFor(ctx context.Context, actorID string) ([]string, error) {
	role, err := g.resolve(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("permission.RoleGrants.PermissionsFor: %w", err)
	}
	return append([]string(nil), g.roles[role]...), nil
}

// DefaultRolePermissions is the built-in role-to-permission mapping: admins
// hold the superuser grant, members manage their own account and content.
func DefaultRolePermissions() map[string][]string {
	return map[string][]string{
		"admin":  {"*"},
		"member": {"user.update", "content.*"},
	}
}
