// smoke-workforce drives one full workforce lifecycle end to end: timesheet
// draft through approval, a crew swap request through completion, the
// duplicate and overlap guards, and the audit trail that the mutations leave
// behind. With CREWPLANE_PG_DSN set it runs against Postgres, otherwise
// against the in-memory store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/auth"
	"crewplane.org/internal/config"
	"crewplane.org/internal/obs"
	"crewplane.org/internal/store/memory"
	"crewplane.org/internal/store/pg"
	"crewplane.org/internal/stream"
	"crewplane.org/internal/workforce"
)

func main() {
	log.SetFlags(0)
	obs.Init("smoke")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var store workforce.Store
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		log.Println("running against postgres")
	} else {
		store = memory.New()
		log.Println("running against in-memory store")
	}
	events := stream.New()
	recorder := audit.NewRecorder().WithPublisher(events)

	timesheets, err := workforce.NewTimesheetService(store, recorder)
	if err != nil {
		log.Fatalf("timesheet service: %v", err)
	}
	swaps, err := workforce.NewCrewSwapService(store, recorder)
	if err != nil {
		log.Fatalf("crew swap service: %v", err)
	}
	assignments, err := workforce.NewCrewAssignmentService(store, recorder)
	if err != nil {
		log.Fatalf("assignment service: %v", err)
	}
	auditSvc, err := audit.NewService(store.Audit())
	if err != nil {
		log.Fatalf("audit service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tail the live audit feed alongside the persisted trail.
	feed := events.Subscribe(ctx)
	var streamed int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range feed {
			streamed++
		}
	}()
	// Run-scoped ids keep reruns against a persistent database clean.
	runID := uuid.NewString()[:8]
	ctx = audit.WithRequestID(ctx, "smoke-"+runID)

	orgID := "org-" + runID
	projectID := "proj-" + runID
	personID := "person-" + runID

	foreman := auth.Actor{UserID: "user-foreman", OrgID: orgID, Roles: []auth.Role{auth.RoleForeman}}
	admin := auth.Actor{UserID: "user-admin", OrgID: orgID, Roles: []auth.Role{auth.RoleOrgAdmin}}
	outsider := auth.Actor{UserID: "user-out", OrgID: orgID + "-other", Roles: []auth.Role{auth.RoleOrgAdmin}}

	workDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Timesheet: draft -> submitted -> approved.
	ts, err := timesheets.Create(ctx, foreman, workforce.CreateTimesheetInput{
		ProjectID: projectID,
		PersonID:  personID,
		CrewID:    "crew-a",
		WorkDate:  workDate,
		Entries:   []workforce.TimesheetEntry{{CostCode: "CC-100", Hours: 8}},
	})
	if err != nil {
		log.Fatalf("create timesheet: %v", err)
	}
	if _, err := timesheets.Create(ctx, foreman, workforce.CreateTimesheetInput{
		ProjectID: projectID, PersonID: personID, WorkDate: workDate,
	}); !errors.Is(err, workforce.ErrConflict) {
		log.Fatalf("duplicate timesheet: want conflict, got %v", err)
	}
	if _, err := timesheets.Submit(ctx, foreman, ts.ID); err != nil {
		log.Fatalf("submit: %v", err)
	}
	if _, err := timesheets.Approve(ctx, outsider, ts.ID, ""); !errors.Is(err, workforce.ErrForbidden) {
		log.Fatalf("cross-org approve: want forbidden, got %v", err)
	}
	approved, err := timesheets.Approve(ctx, admin, ts.ID, "looks right")
	if err != nil {
		log.Fatalf("approve: %v", err)
	}
	if approved.Status != workforce.TimesheetApproved {
		log.Fatalf("unexpected status %s", approved.Status)
	}

	// Crew swap: requested -> approved -> completed.
	swap, err := swaps.Create(ctx, foreman, workforce.CreateCrewSwapInput{
		ProjectID: projectID, PersonID: personID, FromCrewID: "crew-a", ToCrewID: "crew-b",
	})
	if err != nil {
		log.Fatalf("create swap: %v", err)
	}
	if _, err := swaps.Approve(ctx, admin, swap.ID); err != nil {
		log.Fatalf("approve swap: %v", err)
	}
	if _, err := swaps.Complete(ctx, foreman, swap.ID); err != nil {
		log.Fatalf("complete swap: %v", err)
	}

	// Assignments: overlap guard.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := assignments.Create(ctx, admin, workforce.CreateCrewAssignmentInput{
		ProjectID: projectID, PersonID: personID, CrewID: "crew-b", StartDate: start,
	}); err != nil {
		log.Fatalf("create assignment: %v", err)
	}
	if _, err := assignments.Create(ctx, admin, workforce.CreateCrewAssignmentInput{
		ProjectID: projectID, PersonID: personID, CrewID: "crew-b",
		StartDate: start.AddDate(0, 0, 7),
	}); !errors.Is(err, workforce.ErrConflict) {
		log.Fatalf("overlapping assignment: want conflict, got %v", err)
	}

	// Every mutation above must be on the audit trail.
	entries, total, err := auditSvc.ListEvents(ctx, admin, audit.Filter{Limit: 100})
	if err != nil {
		log.Fatalf("list events: %v", err)
	}
	if total < 6 {
		log.Fatalf("audit trail too short: %d entries", total)
	}
	for _, e := range entries {
		if e.OrgID != orgID {
			log.Fatalf("foreign audit entry leaked: %s", e.ID)
		}
	}

	cancel()
	<-done
	if streamed == 0 {
		log.Fatal("audit stream delivered no entries")
	}

	fmt.Printf("smoke passed: timesheet=%s swap=%s audit_entries=%d streamed=%d\n", ts.ID, swap.ID, total, streamed)
}
