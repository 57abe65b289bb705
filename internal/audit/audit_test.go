package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"crewplane.org/internal/auth"
)

type fakeStore struct {
	entries []Entry
	lastF   Filter
}

func (s *fakeStore) Append(ctx context.Context, entry *Entry) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeStore) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	s.lastF = filter
	return s.entries, len(s.entries), nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestRecorderEntry(t *testing.T) {
	ids := []string{"01A", "01B"}
	rec := NewRecorderAt(fixedClock(), func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})

	ctx := WithRequestID(context.Background(), "req-7")
	entry := rec.Entry(ctx, "approved", "timesheet", "ts-1", "org-1", "actor-1", map[string]any{"from": "submitted"})

	if entry.ID != "01A" {
		t.Fatalf("id = %s", entry.ID)
	}
	if entry.EventType != "timesheet.approved" {
		t.Fatalf("event type = %s", entry.EventType)
	}
	if entry.RequestID != "req-7" {
		t.Fatalf("request id = %s", entry.RequestID)
	}
	if !entry.CreatedAt.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created at = %v", entry.CreatedAt)
	}

	// Metadata is copied, not shared.
	src := map[string]any{"k": "v"}
	entry = rec.Entry(ctx, "created", "timesheet", "ts-2", "org-1", "actor-1", src)
	src["k"] = "mutated"
	if entry.Metadata["k"] != "v" {
		t.Fatal("metadata aliased the caller's map")
	}
}

type capturePublisher struct {
	got []Entry
}

func (p *capturePublisher) Publish(entry Entry) { p.got = append(p.got, entry) }

func TestRecorderEmitPublishes(t *testing.T) {
	pub := &capturePublisher{}
	rec := NewRecorder().WithPublisher(pub)

	entry := rec.Entry(context.Background(), "created", "timesheet", "ts-1", "org-1", "actor-1", nil)
	rec.Emit(entry)
	rec.Emit(nil) // ignored

	if len(pub.got) != 1 {
		t.Fatalf("published %d entries", len(pub.got))
	}
	if pub.got[0].EventType != "timesheet.created" {
		t.Fatalf("event type = %s", pub.got[0].EventType)
	}
}

func TestListEventsPinsOrgScope(t *testing.T) {
	store := &fakeStore{}
	svc, err := NewService(store)
	if err != nil {
		t.Fatal(err)
	}
	admin := auth.Actor{UserID: "u1", OrgID: "org-1", Roles: []auth.Role{auth.RoleOrgAdmin}}

	if _, _, err := svc.ListEvents(context.Background(), admin, Filter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastF.OrgID != "org-1" {
		t.Fatalf("org scope = %q", store.lastF.OrgID)
	}
	if store.lastF.Limit != 20 {
		t.Fatalf("default limit = %d", store.lastF.Limit)
	}

	// Asking for another org is refused.
	if _, _, err := svc.ListEvents(context.Background(), admin, Filter{OrgID: "org-2"}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("cross-org list: %v", err)
	}

	// Non-admin roles cannot read the trail.
	viewer := auth.Actor{UserID: "u2", OrgID: "org-1", Roles: []auth.Role{auth.RoleViewer}}
	if _, _, err := svc.ListEvents(context.Background(), viewer, Filter{}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("viewer list: %v", err)
	}

	// Platform actors may scope to any org.
	root := auth.Actor{UserID: "u3", Roles: []auth.Role{auth.RoleSuperAdmin}}
	if _, _, err := svc.ListEvents(context.Background(), root, Filter{OrgID: "org-2"}); err != nil {
		t.Fatalf("platform list: %v", err)
	}
	if store.lastF.OrgID != "org-2" {
		t.Fatalf("platform org scope = %q", store.lastF.OrgID)
	}
}

func TestEventType(t *testing.T) {
	if got := EventType("crew_swap", "cancelled"); got != "crew_swap.cancelled" {
		t.Fatalf("event type = %s", got)
	}
}
