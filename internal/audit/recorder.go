package audit

import (
	"context"
	"encoding/json"
	"time"

	"crewplane.org/internal/ids"
	"crewplane.org/internal/obs"
)

// Publisher receives committed entries for in-process fan-out.
type Publisher interface {
	Publish(entry Entry)
}

// Recorder builds entries with stable ids and timestamps. Services hold one
// recorder and append the produced entries through their own transaction.
type Recorder struct {
	now   func() time.Time
	newID func() string
	pub   Publisher
}

// NewRecorder returns a recorder using the wall clock and ULID ids.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now, newID: ids.New}
}

// NewRecorderAt returns a recorder with an injected clock and id source.
func NewRecorderAt(now func() time.Time, newID func() string) *Recorder {
	return &Recorder{now: now, newID: newID}
}

// WithPublisher routes committed entries to p in addition to the log line.
func (r *Recorder) WithPublisher(p Publisher) *Recorder {
	r.pub = p
	return r
}

// Entry builds an audit entry for a mutation. The caller appends it via the
// transaction that performed the mutation.
func (r *Recorder) Entry(ctx context.Context, action, entityType, entityID, orgID, actorID string, metadata map[string]any) *Entry {
	var meta map[string]any
	if len(metadata) > 0 {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	return &Entry{
		ID:         r.newID(),
		EventType:  EventType(entityType, action),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OrgID:      orgID,
		ActorID:    actorID,
		RequestID:  RequestIDFromContext(ctx),
		Metadata:   meta,
		CreatedAt:  r.now().UTC(),
	}
}

// Emit writes the committed entry as a structured JSON log line and counts
// it. Call after the transaction commits; persistence already happened via
// Store.Append.
func (r *Recorder) Emit(entry *Entry) {
	if entry == nil {
		return
	}
	line := map[string]any{
		"ts":    entry.CreatedAt.Format(time.RFC3339Nano),
		"type":  "audit",
		"event": entry.EventType,
		"org":   entry.OrgID,
	}
	if entry.ActorID != "" {
		line["actor"] = entry.ActorID
	}
	if entry.RequestID != "" {
		line["request_id"] = entry.RequestID
	}
	if entry.EntityID != "" {
		line["entity_id"] = entry.EntityID
	}
	if len(entry.Metadata) > 0 {
		if data, err := json.Marshal(entry.Metadata); err == nil {
			line["fields"] = json.RawMessage(data)
		}
	}
	obs.LogOperation(line)
	obs.ObserveAuditEntry()
	if r.pub != nil {
		r.pub.Publish(*entry)
	}
}
