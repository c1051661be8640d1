package auth

import (
	"context"
	"strings"

	"github.com/jakecourtright/HayFlow/internal/domain"
)

// UserContext holds the authenticated identity and its active organization
type UserContext struct {
	UserID      string
	DisplayName string
	Email       string
	OrgID       string
	Role        domain.UserRoleType
	// Permissions granted explicitly by the identity provider. When empty the role defaults apply.
	Permissions []domain.PermissionType
	IsSystem    bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// rolePermissions are the defaults configured for each organization role
var rolePermissions = map[domain.UserRoleType][]domain.PermissionType{
	domain.RoleAdmin: domain.AllPermissions(),
	domain.RoleBookkeeper: {
		domain.PermissionInventoryWrite,
		domain.PermissionTicketsCreate,
		domain.PermissionTicketsManage,
		domain.PermissionInvoicesManage,
	},
	domain.RoleDriver: {
		domain.PermissionTicketsCreate,
	},
}

// RolePermissions returns the default permissions for a role
func RolePermissions(role domain.UserRoleType) []domain.PermissionType {
	return rolePermissions[role]
}

// ParseRole accepts "org:admin" style role keys as well as bare names
func ParseRole(s string) domain.UserRoleType {
	s = strings.TrimPrefix(strings.TrimSpace(s), "org:")
	return domain.UserRoleType(strings.ToLower(s))
}

// ParsePermission accepts "org:tickets:manage" style keys as well as bare "tickets:manage"
func ParsePermission(s string) domain.PermissionType {
	return domain.PermissionType(strings.TrimPrefix(strings.TrimSpace(s), "org:"))
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	return u.Role == role
}

// IsAdmin reports whether the user is an organization admin or the system identity
func (u *UserContext) IsAdmin() bool {
	return u.IsSystem || u.Role == domain.RoleAdmin
}

// HasOrg reports whether an organization is active for this identity
func (u *UserContext) HasOrg() bool {
	return u.OrgID != ""
}

// HasPermission checks an explicit grant first, then the role defaults
func (u *UserContext) HasPermission(permission domain.PermissionType) bool {
	if u.IsAdmin() {
		return true
	}
	for _, p := range u.ResolvedPermissions() {
		if p == permission {
			return true
		}
	}
	return false
}

// ResolvedPermissions returns the effective permission set
func (u *UserContext) ResolvedPermissions() []domain.PermissionType {
	if u.IsAdmin() {
		return domain.AllPermissions()
	}
	if len(u.Permissions) > 0 {
		return u.Permissions
	}
	return RolePermissions(u.Role)
}

// Flags returns the permission bag consumed by the presentation layer
func (u *UserContext) Flags() domain.PermissionFlagsDTO {
	return domain.PermissionFlagsDTO{
		CanDeleteStacks:    u.HasPermission(domain.PermissionStacksDelete),
		CanDeleteLocations: u.HasPermission(domain.PermissionLocationsDelete),
		CanWriteInventory:  u.HasPermission(domain.PermissionInventoryWrite),
		CanManageTickets:   u.HasPermission(domain.PermissionTicketsManage),
		CanCreateTickets:   u.HasPermission(domain.PermissionTicketsCreate),
		CanManageInvoices:  u.HasPermission(domain.PermissionInvoicesManage),
		CanManageUsers:     u.HasPermission(domain.PermissionUsersManage),
		IsAdmin:            u.Role == domain.RoleAdmin,
		IsBookkeeper:       u.Role == domain.RoleBookkeeper,
		IsDriver:           u.Role == domain.RoleDriver,
	}
}
