// Package ids issues lexicographically sortable identifiers for entities
// and audit entries.
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a fresh ULID string.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID string for the given timestamp. Identifiers issued
// within the same millisecond remain strictly ordered.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
