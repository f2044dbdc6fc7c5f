package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskdeck/internal/domain"
)

func TestResolver(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		perms     []string
		canManage bool
		canStatus bool
		canView   bool
	}{
		{
			name:      "manager",
			role:      domain.RoleUser,
			perms:     []string{domain.PermManageTasks, domain.PermViewTasks},
			canManage: true,
			canView:   true,
		},
		{
			name:      "status-only user cannot view without the grant",
			role:      domain.RoleUser,
			perms:     []string{domain.PermUpdateTaskStatus},
			canStatus: true,
			canView:   false,
		},
		{
			name:    "admin role views without the explicit grant",
			role:    domain.RoleAdmin,
			perms:   nil,
			canView: true,
		},
		{
			name:      "admin role does not imply manage",
			role:      domain.RoleAdmin,
			perms:     []string{domain.PermUpdateTaskStatus},
			canStatus: true,
			canView:   true,
		},
		{
			name: "no grants at all",
			role: domain.RoleUser,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := make([]domain.Permission, 0, len(tt.perms))
			for _, p := range tt.perms {
				perms = append(perms, domain.Permission{PermissionName: p})
			}
			r := NewResolver(tt.role, perms)
			assert.Equal(t, tt.canManage, r.CanManageTasks(), "manage")
			assert.Equal(t, tt.canStatus, r.CanUpdateStatusOnly(), "status")
			assert.Equal(t, tt.canView, r.CanViewTasks(), "view")
		})
	}
}

func TestDeniedError(t *testing.T) {
	err := DeniedError{Action: "delete tasks"}
	assert.Equal(t, "no permission to delete tasks", err.Error())
}
