package auth

import "errors"

var (
	// ErrForbidden is returned when the actor's roles or organization scope
	// do not satisfy an operation's requirements.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrInvalidRole is returned when a raw tag is not part of the closed
	// role set.
	ErrInvalidRole = errors.New("auth: invalid role")

	// ErrInvalidToken indicates a bearer token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
