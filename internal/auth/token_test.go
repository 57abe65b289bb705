package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", "crewplane", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	actor := Actor{UserID: "u42", OrgID: "org-1", Roles: []Role{RoleForeman, RoleViewer}}
	token, err := issuer.Issue(actor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := issuer.ParseActor(token)
	if err != nil {
		t.Fatalf("ParseActor: %v", err)
	}
	if got.UserID != "u42" || got.OrgID != "org-1" || len(got.Roles) != 2 {
		t.Fatalf("unexpected actor: %+v", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", "crewplane", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Issue(Actor{UserID: "u1", Roles: []Role{RoleUser}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	issuer.now = time.Now
	if _, err := issuer.ParseActor(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token must fail: %v", err)
	}
}

func TestTokenRejectsUnknownRoleTags(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret", "crewplane", time.Minute)
	other, _ := NewTokenIssuer("other-secret", "crewplane", time.Minute)

	token, err := other.Issue(Actor{UserID: "u1", Roles: []Role{RoleUser}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.ParseActor(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with a different secret must fail: %v", err)
	}
	if _, err := issuer.ParseActor(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token must fail: %v", err)
	}
}
