package workforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/auth"
	"crewplane.org/internal/ids"
	"crewplane.org/internal/workflow"
)

// timesheetTransitions is the timesheet state table. Archival is not a
// status move; it only stamps ArchivedAt and is handled outside the table.
var timesheetTransitions = workflow.Table{
	{From: workflow.State(TimesheetDraft), Op: OpSubmit}: {
		Target: workflow.State(TimesheetSubmitted),
		Roles:  entryRoles,
	},
	{From: workflow.State(TimesheetSubmitted), Op: OpApprove}: {
		Target: workflow.State(TimesheetApproved),
		Roles:  adminTiers,
	},
	{From: workflow.State(TimesheetSubmitted), Op: OpReject}: {
		Target:        workflow.State(TimesheetRejected),
		Roles:         adminTiers,
		RequireReason: true,
	},
}

// CreateTimesheetInput carries the fields a caller supplies at creation.
type CreateTimesheetInput struct {
	OrgID     string
	ProjectID string
	PersonID  string
	CrewID    string
	WorkDate  time.Time
	Entries   []TimesheetEntry
}

// TimesheetUpdate patches a draft timesheet. Entries, when non-nil, replace
// the existing collection wholesale.
type TimesheetUpdate struct {
	CrewID  *string
	Entries []TimesheetEntry
}

// TimesheetService owns the timesheet lifecycle.
type TimesheetService struct {
	store    Store
	recorder *audit.Recorder
	now      func() time.Time
	newID    func() string
}

// NewTimesheetService constructs the service.
func NewTimesheetService(store Store, recorder *audit.Recorder) (*TimesheetService, error) {
	if store == nil {
		return nil, fmt.Errorf("workforce: store is required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder()
	}
	return &TimesheetService{store: store, recorder: recorder, now: time.Now, newID: ids.New}, nil
}

// Create persists a new draft timesheet after the duplicate check on
// (org, project, person, work date).
func (s *TimesheetService) Create(ctx context.Context, actor auth.Actor, in CreateTimesheetInput) (*Timesheet, error) {
	ts, entry, err := s.create(ctx, actor, in)
	observe(entityTimesheet, opCreate, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return ts, nil
}

func (s *TimesheetService) create(ctx context.Context, actor auth.Actor, in CreateTimesheetInput) (*Timesheet, *audit.Entry, error) {
	orgID, err := resolveOrgScope(in.OrgID, actor)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, entryRoles...); err != nil {
		return nil, nil, err
	}
	projectID, err := requireID(in.ProjectID, "project id")
	if err != nil {
		return nil, nil, err
	}
	personID, err := requireID(in.PersonID, "person id")
	if err != nil {
		return nil, nil, err
	}
	if in.WorkDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: work date is required", ErrInvalidInput)
	}
	workDate := DateOnly(in.WorkDate)

	now := s.now().UTC()
	ts := &Timesheet{
		ID:        s.newID(),
		OrgID:     orgID,
		ProjectID: projectID,
		PersonID:  personID,
		CrewID:    strings.TrimSpace(in.CrewID),
		WorkDate:  workDate,
		Status:    TimesheetDraft,
		Entries:   append([]TimesheetEntry(nil), in.Entries...),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var entry *audit.Entry
	err = s.store.InTx(ctx, func(tx Tx) error {
		dup, err := tx.Timesheets().ExistsActiveDuplicate(ctx, orgID, projectID, personID, workDate)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: timesheet already exists for this person, project and date", ErrConflict)
		}
		if err := tx.Timesheets().Create(ctx, ts); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, "created", entityTimesheet, ts.ID, orgID, actor.UserID, map[string]any{
			"project_id": projectID,
			"person_id":  personID,
			"work_date":  workDate.Format(time.DateOnly),
		})
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return ts, entry, nil
}

// Update replaces the entries of a draft timesheet. Editing is permitted
// only while the timesheet is in draft.
func (s *TimesheetService) Update(ctx context.Context, actor auth.Actor, id string, upd TimesheetUpdate) (*Timesheet, error) {
	ts, entry, err := s.update(ctx, actor, id, upd)
	observe(entityTimesheet, opUpdate, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return ts, nil
}

func (s *TimesheetService) update(ctx context.Context, actor auth.Actor, id string, upd TimesheetUpdate) (*Timesheet, *audit.Entry, error) {
	id, err := requireID(id, "timesheet id")
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, entryRoles...); err != nil {
		return nil, nil, err
	}

	var (
		out   *Timesheet
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		ts, err := tx.Timesheets().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(ts.OrgID, actor); err != nil {
			return err
		}
		if ts.ArchivedAt != nil {
			return fmt.Errorf("%w: timesheet is archived", ErrInvalidInput)
		}
		if ts.Status != TimesheetDraft {
			return fmt.Errorf("%w: entries can only be edited while the timesheet is in draft", ErrInvalidInput)
		}
		if upd.CrewID != nil {
			ts.CrewID = strings.TrimSpace(*upd.CrewID)
		}
		if upd.Entries != nil {
			ts.Entries = append([]TimesheetEntry(nil), upd.Entries...)
		}
		ts.UpdatedAt = s.now().UTC()
		if err := tx.Timesheets().Update(ctx, ts, TimesheetDraft); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, "updated", entityTimesheet, ts.ID, ts.OrgID, actor.UserID, map[string]any{
			"entries": len(ts.Entries),
		})
		out = ts
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Submit moves a draft timesheet to submitted.
func (s *TimesheetService) Submit(ctx context.Context, actor auth.Actor, id string) (*Timesheet, error) {
	return s.transition(ctx, actor, id, OpSubmit, "", "")
}

// Approve moves a submitted timesheet to approved.
func (s *TimesheetService) Approve(ctx context.Context, actor auth.Actor, id, comments string) (*Timesheet, error) {
	return s.transition(ctx, actor, id, OpApprove, "", comments)
}

// Reject moves a submitted timesheet to rejected. The reason is mandatory.
func (s *TimesheetService) Reject(ctx context.Context, actor auth.Actor, id, reason string) (*Timesheet, error) {
	return s.transition(ctx, actor, id, OpReject, reason, "")
}

func (s *TimesheetService) transition(ctx context.Context, actor auth.Actor, id string, op workflow.Operation, reason, comments string) (*Timesheet, error) {
	ts, entry, err := s.applyTransition(ctx, actor, id, op, reason, comments)
	observe(entityTimesheet, string(op), err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return ts, nil
}

func (s *TimesheetService) applyTransition(ctx context.Context, actor auth.Actor, id string, op workflow.Operation, reason, comments string) (*Timesheet, *audit.Entry, error) {
	id, err := requireID(id, "timesheet id")
	if err != nil {
		return nil, nil, err
	}

	var (
		out   *Timesheet
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		ts, err := tx.Timesheets().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(ts.OrgID, actor); err != nil {
			return err
		}
		if ts.ArchivedAt != nil {
			return fmt.Errorf("%w: timesheet is archived", ErrInvalidInput)
		}

		from := ts.Status
		next, err := timesheetTransitions.Apply(actor, workflow.State(from), op, reason)
		if err != nil {
			return transitionErr(err)
		}

		now := s.now().UTC()
		ts.Status = TimesheetStatus(next)
		ts.UpdatedAt = now
		meta := map[string]any{"from": string(from), "to": string(next)}

		var action string
		switch op {
		case OpSubmit:
			action = "submitted"
			ts.SubmittedAt = &now
		case OpApprove:
			action = "approved"
			ts.ApprovedBy = actor.UserID
			ts.ApprovedAt = &now
			if c := strings.TrimSpace(comments); c != "" {
				meta["comments"] = c
			}
		case OpReject:
			action = "rejected"
			ts.RejectedBy = actor.UserID
			ts.RejectedAt = &now
			ts.RejectionReason = strings.TrimSpace(reason)
			meta["reason"] = ts.RejectionReason
		default:
			return fmt.Errorf("%w: unsupported timesheet operation %s", ErrInvalidInput, op)
		}

		if err := tx.Timesheets().Update(ctx, ts, from); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityTimesheet, ts.ID, ts.OrgID, actor.UserID, meta)
		out = ts
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Archive soft-deletes the timesheet. The status is untouched; only
// ArchivedAt is stamped. Legal hold blocks this unless a superadmin
// supplies the override.
func (s *TimesheetService) Archive(ctx context.Context, actor auth.Actor, id string, override bool) (*Timesheet, error) {
	ts, entry, err := s.setArchived(ctx, actor, id, override, true)
	observe(entityTimesheet, opArchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return ts, nil
}

// Unarchive reverses Archive.
func (s *TimesheetService) Unarchive(ctx context.Context, actor auth.Actor, id string) (*Timesheet, error) {
	ts, entry, err := s.setArchived(ctx, actor, id, false, false)
	observe(entityTimesheet, opUnarchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return ts, nil
}

func (s *TimesheetService) setArchived(ctx context.Context, actor auth.Actor, id string, override, archived bool) (*Timesheet, *audit.Entry, error) {
	id, err := requireID(id, "timesheet id")
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, adminTiers...); err != nil {
		return nil, nil, err
	}

	var (
		out   *Timesheet
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		ts, err := tx.Timesheets().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(ts.OrgID, actor); err != nil {
			return err
		}

		action := opUnarchive + "d"
		if archived {
			if ts.ArchivedAt != nil {
				return fmt.Errorf("%w: timesheet is already archived", ErrInvalidInput)
			}
			if err := ensureMutable(ts.LegalHold, actor, override, "archive timesheet"); err != nil {
				return err
			}
			now := s.now().UTC()
			ts.ArchivedAt = &now
			action = opArchive + "d"
		} else {
			if ts.ArchivedAt == nil {
				return fmt.Errorf("%w: timesheet is not archived", ErrInvalidInput)
			}
			ts.ArchivedAt = nil
		}
		ts.UpdatedAt = s.now().UTC()

		if err := tx.Timesheets().Update(ctx, ts, ts.Status); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityTimesheet, ts.ID, ts.OrgID, actor.UserID, nil)
		out = ts
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Get loads one timesheet inside the actor's organization scope.
func (s *TimesheetService) Get(ctx context.Context, actor auth.Actor, id string, includeArchived bool) (*Timesheet, error) {
	id, err := requireID(id, "timesheet id")
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return nil, err
	}
	if err := ensureArchiveVisibility(includeArchived, actor); err != nil {
		return nil, err
	}
	ts, err := s.store.Timesheets().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureSameOrg(ts.OrgID, actor); err != nil {
		return nil, err
	}
	if ts.ArchivedAt != nil && !includeArchived {
		return nil, fmt.Errorf("%w: timesheet %s", ErrNotFound, id)
	}
	return ts, nil
}

// List returns a page of timesheets for the organization scope.
func (s *TimesheetService) List(ctx context.Context, actor auth.Actor, filter TimesheetFilter) (Page[Timesheet], error) {
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return Page[Timesheet]{}, err
	}
	orgID, err := resolveOrgScope(filter.OrgID, actor)
	if err != nil {
		return Page[Timesheet]{}, err
	}
	if err := ensureArchiveVisibility(filter.IncludeArchived, actor); err != nil {
		return Page[Timesheet]{}, err
	}
	filter.OrgID = orgID
	filter.Page, filter.Limit = clampPaging(filter.Page, filter.Limit)

	items, total, err := s.store.Timesheets().List(ctx, filter)
	if err != nil {
		return Page[Timesheet]{}, err
	}
	return Page[Timesheet]{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
