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

// crewSwapTransitions is the crew swap state table. Cancellation carries an
// extra ownership rule (the requester may cancel their own pending swap)
// that the role gate cannot express; CrewSwapService.Cancel checks it.
var crewSwapTransitions = workflow.Table{
	{From: workflow.State(SwapRequested), Op: OpApprove}: {
		Target: workflow.State(SwapApproved),
		Roles:  adminTiers,
	},
	{From: workflow.State(SwapRequested), Op: OpReject}: {
		Target:        workflow.State(SwapRejected),
		Roles:         adminTiers,
		RequireReason: true,
	},
	{From: workflow.State(SwapApproved), Op: OpComplete}: {
		Target: workflow.State(SwapCompleted),
		Roles:  entryRoles,
	},
	{From: workflow.State(SwapRequested), Op: OpCancel}: {
		Target: workflow.State(SwapCancelled),
		Roles:  anyRole,
	},
	{From: workflow.State(SwapApproved), Op: OpCancel}: {
		Target: workflow.State(SwapCancelled),
		Roles:  adminTiers,
	},
}

// CreateCrewSwapInput carries the fields a caller supplies when requesting
// a swap.
type CreateCrewSwapInput struct {
	OrgID      string
	ProjectID  string
	PersonID   string
	FromCrewID string
	ToCrewID   string
}

// CrewSwapService owns the crew swap lifecycle.
type CrewSwapService struct {
	store    Store
	recorder *audit.Recorder
	now      func() time.Time
	newID    func() string
}

// NewCrewSwapService constructs the service.
func NewCrewSwapService(store Store, recorder *audit.Recorder) (*CrewSwapService, error) {
	if store == nil {
		return nil, fmt.Errorf("workforce: store is required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder()
	}
	return &CrewSwapService{store: store, recorder: recorder, now: time.Now, newID: ids.New}, nil
}

// Create records a swap request after the single-open-swap check for the
// person on the project.
func (s *CrewSwapService) Create(ctx context.Context, actor auth.Actor, in CreateCrewSwapInput) (*CrewSwap, error) {
	swap, entry, err := s.create(ctx, actor, in)
	observe(entityCrewSwap, opCreate, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return swap, nil
}

func (s *CrewSwapService) create(ctx context.Context, actor auth.Actor, in CreateCrewSwapInput) (*CrewSwap, *audit.Entry, error) {
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
	fromCrew, err := requireID(in.FromCrewID, "from crew id")
	if err != nil {
		return nil, nil, err
	}
	toCrew, err := requireID(in.ToCrewID, "to crew id")
	if err != nil {
		return nil, nil, err
	}
	if fromCrew == toCrew {
		return nil, nil, fmt.Errorf("%w: source and target crew are the same", ErrInvalidInput)
	}

	now := s.now().UTC()
	swap := &CrewSwap{
		ID:          s.newID(),
		OrgID:       orgID,
		ProjectID:   projectID,
		PersonID:    personID,
		FromCrewID:  fromCrew,
		ToCrewID:    toCrew,
		Status:      SwapRequested,
		RequestedBy: actor.UserID,
		RequestedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var entry *audit.Entry
	err = s.store.InTx(ctx, func(tx Tx) error {
		open, err := tx.CrewSwaps().ExistsOpenForPerson(ctx, orgID, projectID, personID)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("%w: person already has an open swap on this project", ErrConflict)
		}
		if err := tx.CrewSwaps().Create(ctx, swap); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, "requested", entityCrewSwap, swap.ID, orgID, actor.UserID, map[string]any{
			"project_id":   projectID,
			"person_id":    personID,
			"from_crew_id": fromCrew,
			"to_crew_id":   toCrew,
		})
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return swap, entry, nil
}

// Approve moves a requested swap to approved.
func (s *CrewSwapService) Approve(ctx context.Context, actor auth.Actor, id string) (*CrewSwap, error) {
	return s.transition(ctx, actor, id, OpApprove, "")
}

// Reject moves a requested swap to rejected. The reason is mandatory.
func (s *CrewSwapService) Reject(ctx context.Context, actor auth.Actor, id, reason string) (*CrewSwap, error) {
	return s.transition(ctx, actor, id, OpReject, reason)
}

// Complete marks an approved swap as carried out in the field.
func (s *CrewSwapService) Complete(ctx context.Context, actor auth.Actor, id string) (*CrewSwap, error) {
	return s.transition(ctx, actor, id, OpComplete, "")
}

// Cancel withdraws a swap. A requested swap may be cancelled by its own
// requester or by an admin; an approved swap only by an admin.
func (s *CrewSwapService) Cancel(ctx context.Context, actor auth.Actor, id, reason string) (*CrewSwap, error) {
	return s.transition(ctx, actor, id, OpCancel, reason)
}

func (s *CrewSwapService) transition(ctx context.Context, actor auth.Actor, id string, op workflow.Operation, reason string) (*CrewSwap, error) {
	swap, entry, err := s.applyTransition(ctx, actor, id, op, reason)
	observe(entityCrewSwap, string(op), err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return swap, nil
}

func (s *CrewSwapService) applyTransition(ctx context.Context, actor auth.Actor, id string, op workflow.Operation, reason string) (*CrewSwap, *audit.Entry, error) {
	id, err := requireID(id, "crew swap id")
	if err != nil {
		return nil, nil, err
	}

	var (
		out   *CrewSwap
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		swap, err := tx.CrewSwaps().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(swap.OrgID, actor); err != nil {
			return err
		}
		if swap.ArchivedAt != nil {
			return fmt.Errorf("%w: crew swap is archived", ErrInvalidInput)
		}

		from := swap.Status
		if op == OpCancel && from == SwapRequested {
			if err := s.ensureMayCancelRequested(swap, actor); err != nil {
				return err
			}
		}
		next, err := crewSwapTransitions.Apply(actor, workflow.State(from), op, reason)
		if err != nil {
			return transitionErr(err)
		}

		now := s.now().UTC()
		swap.Status = CrewSwapStatus(next)
		swap.UpdatedAt = now
		meta := map[string]any{"from": string(from), "to": string(next)}

		var action string
		switch op {
		case OpApprove:
			action = "approved"
			swap.ApprovedBy = actor.UserID
			swap.ApprovedAt = &now
		case OpReject:
			action = "rejected"
			swap.RejectedBy = actor.UserID
			swap.RejectedAt = &now
			swap.RejectionReason = strings.TrimSpace(reason)
			meta["reason"] = swap.RejectionReason
		case OpComplete:
			action = "completed"
			swap.CompletedBy = actor.UserID
			swap.CompletedAt = &now
		case OpCancel:
			action = "cancelled"
			swap.CancelledBy = actor.UserID
			swap.CancelledAt = &now
			swap.CancelReason = strings.TrimSpace(reason)
			if swap.CancelReason != "" {
				meta["reason"] = swap.CancelReason
			}
		default:
			return fmt.Errorf("%w: unsupported crew swap operation %s", ErrInvalidInput, op)
		}

		if err := tx.CrewSwaps().Update(ctx, swap, from); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityCrewSwap, swap.ID, swap.OrgID, actor.UserID, meta)
		out = swap
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// ensureMayCancelRequested lets the original requester withdraw their own
// pending swap even when their roles would not clear the table's gate.
func (s *CrewSwapService) ensureMayCancelRequested(swap *CrewSwap, actor auth.Actor) error {
	if swap.RequestedBy == actor.UserID {
		return nil
	}
	return auth.EnsureAnyRole(actor, adminTiers...)
}

// Archive soft-deletes the swap. Legal hold blocks this unless a superadmin
// supplies the override.
func (s *CrewSwapService) Archive(ctx context.Context, actor auth.Actor, id string, override bool) (*CrewSwap, error) {
	swap, entry, err := s.setArchived(ctx, actor, id, override, true)
	observe(entityCrewSwap, opArchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return swap, nil
}

// Unarchive reverses Archive.
func (s *CrewSwapService) Unarchive(ctx context.Context, actor auth.Actor, id string) (*CrewSwap, error) {
	swap, entry, err := s.setArchived(ctx, actor, id, false, false)
	observe(entityCrewSwap, opUnarchive, err)
	if err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return swap, nil
}

func (s *CrewSwapService) setArchived(ctx context.Context, actor auth.Actor, id string, override, archived bool) (*CrewSwap, *audit.Entry, error) {
	id, err := requireID(id, "crew swap id")
	if err != nil {
		return nil, nil, err
	}
	if err := auth.EnsureAnyRole(actor, adminTiers...); err != nil {
		return nil, nil, err
	}

	var (
		out   *CrewSwap
		entry *audit.Entry
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		swap, err := tx.CrewSwaps().Find(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.EnsureSameOrg(swap.OrgID, actor); err != nil {
			return err
		}

		action := opUnarchive + "d"
		if archived {
			if swap.ArchivedAt != nil {
				return fmt.Errorf("%w: crew swap is already archived", ErrInvalidInput)
			}
			if err := ensureMutable(swap.LegalHold, actor, override, "archive crew swap"); err != nil {
				return err
			}
			now := s.now().UTC()
			swap.ArchivedAt = &now
			action = opArchive + "d"
		} else {
			if swap.ArchivedAt == nil {
				return fmt.Errorf("%w: crew swap is not archived", ErrInvalidInput)
			}
			swap.ArchivedAt = nil
		}
		swap.UpdatedAt = s.now().UTC()

		if err := tx.CrewSwaps().Update(ctx, swap, swap.Status); err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityCrewSwap, swap.ID, swap.OrgID, actor.UserID, nil)
		out = swap
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, entry, nil
}

// Get loads one crew swap inside the actor's organization scope.
func (s *CrewSwapService) Get(ctx context.Context, actor auth.Actor, id string, includeArchived bool) (*CrewSwap, error) {
	id, err := requireID(id, "crew swap id")
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return nil, err
	}
	if err := ensureArchiveVisibility(includeArchived, actor); err != nil {
		return nil, err
	}
	swap, err := s.store.CrewSwaps().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureSameOrg(swap.OrgID, actor); err != nil {
		return nil, err
	}
	if swap.ArchivedAt != nil && !includeArchived {
		return nil, fmt.Errorf("%w: crew swap %s", ErrNotFound, id)
	}
	return swap, nil
}

// List returns a page of crew swaps for the organization scope.
func (s *CrewSwapService) List(ctx context.Context, actor auth.Actor, filter CrewSwapFilter) (Page[CrewSwap], error) {
	if err := auth.EnsureAnyRole(actor, anyRole...); err != nil {
		return Page[CrewSwap]{}, err
	}
	orgID, err := resolveOrgScope(filter.OrgID, actor)
	if err != nil {
		return Page[CrewSwap]{}, err
	}
	if err := ensureArchiveVisibility(filter.IncludeArchived, actor); err != nil {
		return Page[CrewSwap]{}, err
	}
	filter.OrgID = orgID
	filter.Page, filter.Limit = clampPaging(filter.Page, filter.Limit)

	items, total, err := s.store.CrewSwaps().List(ctx, filter)
	if err != nil {
		return Page[CrewSwap]{}, err
	}
	return Page[CrewSwap]{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
