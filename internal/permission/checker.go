// Package permission maps (actor, action, required permissions) to an
// allow/deny decision over a pluggable grant source.
package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Grants resolves the permission strings held by an actor.
type Grants interface {
	PermissionsFor(ctx context.Context, actorID string) ([]string, error)
}

// Checker decides whether an actor may perform an action. All required
// permissions must be satisfied; an empty requirement set always allows.
type Checker struct {
	grants Grants
}

func NewChecker(grants Grants) *Checker {
	return &Checker{grants: grants}
}

// Check reports whether actorID holds every permission in required. A grant
// satisfies a requirement by exact match, by the superuser grant "*", or by a
// namespace wildcard such as "content.*" covering "content.create".
func (c *Checker) Check(ctx context.Context, actorID, action string, required []string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	granted, err := c.grants.PermissionsFor(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("permission.Checker.Check: actor %q action %q: %w", actorID, action, err)
	}

	held := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		held[g] = struct{}{}
	}

	for _, req := range required {
		if !satisfied(held, req) {
			return false, nil
		}
	}
	return true, nil
}

func satisfied(held map[string]struct{}, req string) bool {
	if _, ok := held["*"]; ok {
		return true
	}
	if _, ok := held[req]; ok {
		return true
	}
	if i := strings.LastIndexByte(req, '.'); i > 0 {
		if _, ok := held[req[:i]+".*"]; ok {
			return true
		}
	}
	return false
}

// StaticGrants is an in-memory Grants implementation keyed by actor ID.
// Suitable for tests and single-binary deployments.
type StaticGrants struct {
	mu     sync.RWMutex
	grants map[string][]string
}

func NewStaticGrants() *StaticGrants {
	return &StaticGrants{grants: make(map[string][]string)}
}

// Grant assigns permissions to actorID, replacing any previous assignment.
func (s *StaticGrants) Grant(actorID string, permissions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[actorID] = append([]string(nil), permissions...)
}

func (s *StaticGrants) PermissionsFor(_ context.Context, actorID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.grants[actorID]...), nil
}
