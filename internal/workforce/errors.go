package workforce

import (
	"errors"

	"crewplane.org/internal/auth"
)

// The four error kinds every operation resolves to. The transport layer
// owns the mapping to protocol responses (400/403/404/409); this package
// never retries and never downgrades an error into a no-op.
var (
	// ErrInvalidInput covers malformed input, illegal state transitions
	// and missing required transition fields.
	ErrInvalidInput = errors.New("workforce: invalid input")

	// ErrNotFound means the entity id does not resolve inside the caller's
	// organization scope.
	ErrNotFound = errors.New("workforce: not found")

	// ErrConflict means a duplicate or overlapping active record exists,
	// or a transition lost the optimistic race on the status column.
	ErrConflict = errors.New("workforce: conflict")

	// ErrForbidden is the shared organization-scope/role violation.
	ErrForbidden = auth.ErrForbidden
)
