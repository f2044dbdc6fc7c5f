// Package capability derives allowed actions from the signed-in identity.
package capability

import (
	"fmt"

	"taskdeck/internal/domain"
)

// DeniedError indicates a capability check failed before any transport call.
type DeniedError struct {
	Action string
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("no permission to %s", e.Action)
}

// Resolver answers capability queries for one session's role and grants.
// It holds no other state and is re-evaluated on every check.
type Resolver struct {
	Role        string
	Permissions []string
}

// NewResolver builds a resolver from the session's fetched permission list.
func NewResolver(role string, perms []domain.Permission) Resolver {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.PermissionName)
	}
	return Resolver{Role: role, Permissions: names}
}

func (r Resolver) has(name string) bool {
	for _, p := range r.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// CanManageTasks reports whether the identity may create, fully update, and
// delete tasks.
func (r Resolver) CanManageTasks() bool {
	return r.has(domain.PermManageTasks)
}

// CanUpdateStatusOnly reports whether the identity may change a task's status.
func (r Resolver) CanUpdateStatusOnly() bool {
	return r.has(domain.PermUpdateTaskStatus)
}

// CanViewTasks reports whether the identity may list tasks. The Admin role
// overrides the grant here and only here; manage/update have no role override.
func (r Resolver) CanViewTasks() bool {
	return r.has(domain.PermViewTasks) || r.Role == domain.RoleAdmin
}
