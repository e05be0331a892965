package auth

import (
	"context"
	"strings"
)

// Roles known to the application.
const (
	RoleTechnician = "technician"
	RoleDentist    = "dentist"
	RoleAdmin      = "admin"
)

// Identity is the authenticated caller: who they are and which capabilities
// they hold. Services receive it as an explicit argument.
type Identity struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
}

// IsZero reports whether no caller is attached.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// HasRole reports whether the identity holds role exactly.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the identity may see every scan and change scan
// status. Admins pass every role gate.
func (i Identity) IsReviewer() bool {
	return i.HasRole(RoleDentist) || i.HasRole(RoleAdmin)
}

// CanUpload reports whether the identity may upload scans.
func (i Identity) CanUpload() bool {
	return i.HasRole(RoleTechnician) || i.HasRole(RoleAdmin)
}

// TechnicianOnly reports whether list visibility must be restricted to the
// caller's own uploads.
func (i Identity) TechnicianOnly() bool {
	return i.HasRole(RoleTechnician) && !i.IsReviewer()
}

// PrimaryRole is the role shown on the header badge.
func (i Identity) PrimaryRole() string {
	for _, r := range []string{RoleDentist, RoleTechnician, RoleAdmin} {
		if i.HasRole(r) {
			return r
		}
	}
	if len(i.Roles) > 0 {
		return i.Roles[0]
	}
	return ""
}

// IdentityFromContext assembles the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id := Identity{
		UserID: UserIDFromContext(ctx),
		Email:  EmailFromContext(ctx),
		Roles:  RolesFromContext(ctx),
	}
	return id, !id.IsZero()
}

// ParseRoles splits a comma-separated role list.
func ParseRoles(s string) []string {
	var roles []string
	for _, part := range strings.Split(s, ",") {
		if r := strings.ToLower(strings.TrimSpace(part)); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
