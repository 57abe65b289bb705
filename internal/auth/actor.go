package auth

import "context"

// Actor identifies the caller of a service operation. It is built once per
// request by the session layer, passed explicitly through every call, and
// discarded at request end. A zero UserID denotes a system actor.
type Actor struct {
	UserID string
	OrgID  string
	Roles  []Role
}

// HasRole reports whether the actor's expanded closure contains the role.
func (a Actor) HasRole(role Role) bool {
	_, ok := Expand(a.Roles)[role]
	return ok
}

// IsPlatform reports whether the actor holds a cross-tenant role.
func (a Actor) IsPlatform() bool {
	for _, r := range a.Roles {
		if IsPlatform(r) {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// ContextWithActor attaches the request actor to the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the request actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorContextKey{}).(Actor)
	return a, ok
}
