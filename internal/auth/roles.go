// Package auth provides role expansion, per-request actor identity and the
// organization-scope and role guards applied by every service operation.
package auth

import (
	"fmt"
	"strings"
)

// Role is a closed, case-sensitive role tag.
type Role string

const (
	RoleSuperAdmin        Role = "superadmin"
	RolePlatformAdmin     Role = "platform_admin"
	RoleOrgOwner          Role = "org_owner"
	RoleOrgAdmin          Role = "org_admin"
	RoleAdmin             Role = "admin"
	RoleManager           Role = "manager"
	RolePM                Role = "pm"
	RoleForeman           Role = "foreman"
	RoleCrewLead          Role = "crew_lead"
	RoleComplianceOfficer Role = "compliance_officer"
	RoleCompliance        Role = "compliance"
	RoleViewer            Role = "viewer"
	RoleUser              Role = "user"
)

// rolePriority lists all roles, highest privilege first.
var rolePriority = []Role{
	RoleSuperAdmin,
	RolePlatformAdmin,
	RoleOrgOwner,
	RoleOrgAdmin,
	RoleAdmin,
	RoleManager,
	RoleComplianceOfficer,
	RolePM,
	RoleForeman,
	RoleCrewLead,
	RoleCompliance,
	RoleViewer,
	RoleUser,
}

// baseRoles are the working roles implied by every admin tier.
var baseRoles = []Role{
	RoleManager,
	RoleComplianceOfficer,
	RolePM,
	RoleForeman,
	RoleCrewLead,
	RoleCompliance,
	RoleViewer,
	RoleUser,
}

// roleHierarchy is the static implied-privilege table. It is hand
// maintained, never inferred, and immutable for the process lifetime.
var roleHierarchy = map[Role][]Role{
	RoleSuperAdmin:        rolePriority,
	RolePlatformAdmin:     allBut(RoleSuperAdmin),
	RoleOrgOwner:          withBase(RoleOrgOwner, RoleOrgAdmin, RoleAdmin),
	RoleOrgAdmin:          withBase(RoleOrgAdmin, RoleAdmin),
	RoleAdmin:             withBase(RoleAdmin),
	RoleManager:           {RoleManager, RoleViewer, RoleUser},
	RolePM:                {RolePM, RoleViewer, RoleUser},
	RoleForeman:           {RoleForeman, RoleViewer, RoleUser},
	RoleCrewLead:          {RoleCrewLead, RoleViewer, RoleUser},
	RoleComplianceOfficer: {RoleComplianceOfficer, RoleCompliance, RoleUser},
	RoleCompliance:        {RoleCompliance, RoleViewer, RoleUser},
	RoleViewer:            {RoleViewer, RoleUser},
	RoleUser:              {RoleUser},
}

func allBut(exclude Role) []Role {
	out := make([]Role, 0, len(rolePriority)-1)
	for _, r := range rolePriority {
		if r != exclude {
			out = append(out, r)
		}
	}
	return out
}

func withBase(roles ...Role) []Role {
	out := make([]Role, 0, len(roles)+len(baseRoles))
	seen := map[Role]struct{}{}
	for _, r := range append(roles, baseRoles...) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Known reports whether the tag is part of the closed role set.
func Known(r Role) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// ParseRole converts a raw tag into a Role. Unknown tags are an error;
// role tags are closed and never defaulted.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.TrimSpace(raw))
	if !Known(r) {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRole, raw)
	}
	return r, nil
}

// ParseRoles converts raw tags, failing on the first unknown one.
func ParseRoles(raw []string) ([]Role, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Role, 0, len(raw))
	for _, tag := range raw {
		r, err := ParseRole(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Expand returns the full implied-privilege closure of the held roles.
// Unknown held tags carry no privileges.
func Expand(roles []Role) map[Role]struct{} {
	out := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		implied, ok := roleHierarchy[r]
		if !ok {
			continue
		}
		out[r] = struct{}{}
		for _, i := range implied {
			out[i] = struct{}{}
		}
	}
	return out
}

// IsPlatform reports whether the role operates across tenants.
func IsPlatform(r Role) bool {
	return r == RoleSuperAdmin || r == RolePlatformAdmin
}
