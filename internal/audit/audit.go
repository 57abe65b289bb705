// Package audit defines the append-only record of every mutating operation.
// An entry is written in the same transaction as the mutation it describes
// and is never updated or deleted afterwards.
package audit

import (
	"context"
	"strings"
	"time"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"` // "timesheet.approved"
	Action     string         `json:"action"`     // "approved"
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	OrgID      string         `json:"org_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter selects entries for the read path.
type Filter struct {
	OrgID      string
	EntityType string
	EntityID   string
	ActorID    string
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// Store persists entries. Append runs inside the caller's transaction so a
// mutation and its audit record commit or roll back together. List returns
// entries newest-first plus the total match count.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
}

// EventType joins an entity type and an action into the canonical form.
func EventType(entityType, action string) string {
	return entityType + "." + action
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches a request correlation id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request correlation id, if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
