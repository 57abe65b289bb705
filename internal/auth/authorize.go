package auth

import (
	"fmt"
	"strings"
)

// EnsureAnyRole verifies that the actor's expanded role closure intersects
// the required set. An unknown role in the required set is a programmer
// error and panics; required sets are static tables, not runtime input.
// Role checks never substitute for EnsureSameOrg.
func EnsureAnyRole(actor Actor, required ...Role) error {
	if len(required) == 0 {
		return fmt.Errorf("auth: empty required role set")
	}
	for _, r := range required {
		if !Known(r) {
			panic(fmt.Sprintf("auth: unknown required role %q", r))
		}
	}
	held := Expand(actor.Roles)
	for _, r := range required {
		if _, ok := held[r]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: requires one of %s", ErrForbidden, joinRoles(required))
}

// EnsureSameOrg verifies the entity's owning organization matches the
// actor's scope. Only platform roles operate cross-tenant. The violation is
// always forbidden, never not-found, so tenants cannot probe for entity
// existence.
func EnsureSameOrg(entityOrgID string, actor Actor) error {
	if actor.IsPlatform() {
		return nil
	}
	if actor.OrgID == "" || actor.OrgID != entityOrgID {
		return fmt.Errorf("%w: cannot access resources outside your organization", ErrForbidden)
	}
	return nil
}

// CanViewArchived reports whether the actor may request archived records.
func CanViewArchived(actor Actor) bool {
	return EnsureAnyRole(actor, RoleAdmin) == nil || actor.IsPlatform()
}

func joinRoles(roles []Role) string {
	tags := make([]string, len(roles))
	for i, r := range roles {
		tags[i] = string(r)
	}
	return strings.Join(tags, ",")
}
