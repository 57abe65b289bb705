package auth

import (
	"errors"
	"testing"
)

func TestExpandClosure(t *testing.T) {
	held := Expand([]Role{RoleOrgAdmin})
	for _, want := range []Role{RoleOrgAdmin, RoleAdmin, RoleForeman, RoleCrewLead, RoleViewer, RoleUser} {
		if _, ok := held[want]; !ok {
			t.Fatalf("org_admin closure missing %s", want)
		}
	}
	if _, ok := held[RoleOrgOwner]; ok {
		t.Fatal("org_admin must not imply org_owner")
	}
	if _, ok := held[RoleSuperAdmin]; ok {
		t.Fatal("org_admin must not imply superadmin")
	}
}

func TestExpandPlatformRoles(t *testing.T) {
	held := Expand([]Role{RolePlatformAdmin})
	if _, ok := held[RoleSuperAdmin]; ok {
		t.Fatal("platform_admin must not imply superadmin")
	}
	if _, ok := held[RoleOrgOwner]; !ok {
		t.Fatal("platform_admin should imply org_owner")
	}

	held = Expand([]Role{RoleSuperAdmin})
	for _, r := range rolePriority {
		if _, ok := held[r]; !ok {
			t.Fatalf("superadmin closure missing %s", r)
		}
	}
}

func TestExpandIgnoresUnknownTags(t *testing.T) {
	held := Expand([]Role{Role("intruder")})
	if len(held) != 0 {
		t.Fatalf("unknown role must carry no privileges, got %v", held)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" foreman ")
	if err != nil || r != RoleForeman {
		t.Fatalf("ParseRole: %v %v", r, err)
	}
	if _, err := ParseRole("FOREMAN"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("role tags are case-sensitive, got %v", err)
	}
	if _, err := ParseRole("warlock"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role must fail, got %v", err)
	}
}
