package workforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/auth"
	"crewplane.org/internal/ids"
)

// CreateCrewAssignmentInput carries the fields a caller supplies when
// placing a person on a crew.
type CreateCrewAssignmentInput struct {
	OrgID     string
	ProjectID string
	PersonID  string
	CrewID    string
	RoleKey   string
	StartDate time.Time
	EndDate   *time.Time
}

// CrewAssignmentUpdate patches an assignment. Status, when non-nil, must
// parse to a known value; unknown statuses are rejected.
type CrewAssignmentUpdate struct {
	RoleKey   *string
	StartDate *time.Time
	EndDate   *time.Time
	ClearEnd  bool
	Status    *string
}

// CrewAssignmentService owns crew assignments. Assignments have no approval
// workflow; their invariant is the no-overlap rule per person and crew.
type CrewAssignmentService struct {
	store    Store
	recorder *audit.Recorder
	now      func() time.Time
	newID    func() string
}

// NewCrewAssignmentService constructs the service.
func NewCrewAssignmentService(store Store, recorder *audit.Recorder) (*CrewAssignmentService, error) {
	if store == nil {
		return nil, fmt.Errorf("workforce: store is required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder()
	}
	return &CrewAssignmentService{store: store, recorder: recorder, now: time.Now, newID: ids.New}, nil
}

// Create persists an active assignment after the overlap check against the
// person's existing assignments on the crew.
func (s *CrewAssignmentService) Create(ctx context.Context, actor auth.Actor, in CreateCrewAssignmentInput) (*CrewAssignment, error) {
	a, entry, err := s.create(ctx, actor, in)
	observe(entityCrewAssignment, opCreate, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return a, nil
}

func (s *CrewAssignmentService) create(ctx context.Context, actor auth.Actor, in CreateCrewAssignmentInput) (*CrewAssignment, *audit.Entry, error) {
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
	crewID, err := requireID(in.CrewID, "crew id")
	if err != nil {
		return nil, nil, err
	}
	if in.StartDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	start := DateOnly(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := DateOnly(*in.EndDate)
		if !e.After(start) {
			return nil, nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
		}
		end = &e
	}

	now := s.now().UTC()
	a := &CrewAssignment{
		ID:        s.newID(),
		OrgID:     orgID,
		ProjectID: projectID,
		PersonID:  personID,
		CrewID:    crewID,
		RoleKey:   strings.TrimSpace(in.RoleKey),
		StartDate: start,
		EndDate:   end,
		Status:    AssignmentActive,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var entry *audit.Entry
	err = s.store.InTx(ctx, func(tx Tx) error {
		overlap, err := tx.CrewAssignments().ExistsOverlapping(ctx, orgID, personID, crewID, start, end, "")
		if err != nil {
			return err
		}
		if overlap {
			return fmt.Errorf("%w: person already has an overlapping assignment on this crew", ErrConflict)
		}
		if err := tx.CrewAssignments().Create(ctx, a); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, "created", entityCrewAssignment, a.ID, orgID, actor.UserID, map[string]any{
			"project_id": projectID,
			"person_id":  personID,
			"crew_id":    crewID,
			"start_date": start.Format(time.DateOnly),
		})
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, entry, nil
}

// Update patches an assignment. Date changes re-run the overlap check with
// the assignment itself excluded.
func (s *CrewAssignmentService) Update(ctx context.Context, actor auth.Actor, id string, upd CrewAssignmentUpdate) (*CrewAssignment, error) {
	a, entry, err := s.update(ctx, actor, id, upd)
	observe(entityCrewAssignment, opUpdate, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return a, nil
}

func (s *CrewAssignmentService) update(ctx context.Context, actor auth.Actor, id string, upd CrewAssignmentUpdate) (*CrewAssignment, *audit.Entry, error) {
	id, err := requireID(id, "crew assignment id")
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, entryRoles...); err != nil {
		return nil, nil, err
	}
	var status *CrewAssignmentStatus
	if upd.Status != nil {
		parsed, err := ParseCrewAssignmentStatus(*upd.Status)
		if err != nil {
			return nil, nil, err
		}
		status = &parsed
	}

	var (
		out   *CrewAssignment
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		a, err := tx.CrewAssignments().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(a.OrgID, actor); err != nil {
			return err
		}
		if a.ArchivedAt != nil {
			return fmt.Errorf("%w: crew assignment is archived", ErrInvalidInput)
		}

		from := a.Status
		if upd.RoleKey != nil {
			a.RoleKey = strings.TrimSpace(*upd.RoleKey)
		}
		datesChanged := false
		if upd.StartDate != nil {
			a.StartDate = DateOnly(*upd.StartDate)
			datesChanged = true
		}
		if upd.ClearEnd {
			a.EndDate = nil
			datesChanged = true
		} else if upd.EndDate != nil {
			e := DateOnly(*upd.EndDate)
			a.EndDate = &e
			datesChanged = true
		}
		if a.EndDate != nil && !a.EndDate.After(a.StartDate) {
			return fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
		}
		if status != nil {
			a.Status = *status
		}

		if datesChanged && a.Status == AssignmentActive {
			overlap, err := tx.CrewAssignments().ExistsOverlapping(ctx, a.OrgID, a.PersonID, a.CrewID, a.StartDate, a.EndDate, a.ID)
			if err != nil {
				return err
			}
			if overlap {
				return fmt.Errorf("%w: person already has an overlapping assignment on this crew", ErrConflict)
			}
		}

		a.UpdatedAt = s.now().UTC()
		if err := tx.CrewAssignments().Update(ctx, a, from); err != nil {
			return err
		}
		meta := map[string]any{}
		if status != nil {
			meta["from"] = string(from)
			meta["to"] = string(a.Status)
		}
		entry = s.recorder.Entry(ctx, "updated", entityCrewAssignment, a.ID, a.OrgID, actor.UserID, meta)
		out = a
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Archive soft-deletes the assignment. Legal hold blocks this unless a
// superadmin supplies the override.
func (s *CrewAssignmentService) Archive(ctx context.Context, actor auth.Actor, id string, override bool) (*CrewAssignment, error) {
	a, entry, err := s.setArchived(ctx, actor, id, override, true)
	observe(entityCrewAssignment, opArchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return a, nil
}

// Unarchive reverses Archive.
func (s *CrewAssignmentService) Unarchive(ctx context.Context, actor auth.Actor, id string) (*CrewAssignment, error) {
	a, entry, err := s.setArchived(ctx, actor, id, false, false)
	observe(entityCrewAssignment, opUnarchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return a, nil
}

func (s *CrewAssignmentService) setArchived(ctx context.Context, actor auth.Actor, id string, override, archived bool) (*CrewAssignment, *audit.Entry, error) {
	id, err := requireID(id, "crew assignment id")
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, adminTiers...); err != nil {
		return nil, nil, err
	}

	var (
		out   *CrewAssignment
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		a, err := tx.CrewAssignments().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(a.OrgID, actor); err != nil {
			return err
		}

		action := opUnarchive + "d"
		if archived {
			if a.ArchivedAt != nil {
				return fmt.Errorf("%w: crew assignment is already archived", ErrInvalidInput)
			}
			if err := ensureMutable(a.LegalHold, actor, override, "archive crew assignment"); err != nil {
				return err
			}
			now := s.now().UTC()
			a.ArchivedAt = &now
			action = opArchive + "d"
		} else {
			if a.ArchivedAt == nil {
				return fmt.Errorf("%w: crew assignment is not archived", ErrInvalidInput)
			}
			a.ArchivedAt = nil
		}
		a.UpdatedAt = s.now().UTC()

		if err := tx.CrewAssignments().Update(ctx, a, a.Status); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityCrewAssignment, a.ID, a.OrgID, actor.UserID, nil)
		out = a
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Get loads one assignment inside the actor's organization scope.
func (s *CrewAssignmentService) Get(ctx context.Context, actor auth.Actor, id string, includeArchived bool) (*CrewAssignment, error) {
	id, err := requireID(id, "crew assignment id")
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return nil, err
	}
	if err := ensureArchiveVisibility(includeArchived, actor); err != nil {
		return nil, err
	}
	a, err := s.store.CrewAssignments().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureSameOrg(a.OrgID, actor); err != nil {
		return nil, err
	}
	if a.ArchivedAt != nil && !includeArchived {
		return nil, fmt.Errorf("%w: crew assignment %s", ErrNotFound, id)
	}
	return a, nil
}

// List returns a page of assignments for the organization scope.
func (s *CrewAssignmentService) List(ctx context.Context, actor auth.Actor, filter CrewAssignmentFilter) (Page[CrewAssignment], error) {
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return Page[CrewAssignment]{}, err
	}
	orgID, err := resolveOrgScope(filter.OrgID, actor)
	if err != nil {
		return Page[CrewAssignment]{}, err
	}
	if err := ensureArchiveVisibility(filter.IncludeArchived, actor); err != nil {
		return Page[CrewAssignment]{}, err
	}
	filter.OrgID = orgID
	filter.Page, filter.Limit = clampPaging(filter.Page, filter.Limit)

	items, total, err := s.store.CrewAssignments().List(ctx, filter)
	if err != nil {
		return Page[CrewAssignment]{}, err
	}
	return Page[CrewAssignment]{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
