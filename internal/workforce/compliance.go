package workforce

import (
	"context"
	"fmt"
	"time"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/auth"
)

const (
	opLegalHold = "legal_hold"
	opStripPII  = "strip_pii"
	// redacted replaces person-identifying fields after a PII strip.
	redacted = "redacted"
)

// ComplianceService owns retention controls: legal holds and PII stripping.
// Both are superadmin-only and fully audited.
type ComplianceService struct {
	store    Store
	recorder *audit.Recorder
	now      func() time.Time
}

// NewComplianceService constructs the service.
func NewComplianceService(store Store, recorder *audit.Recorder) (*ComplianceService, error) {
	if store == nil {
		return nil, fmt.Errorf("workforce: store is required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder()
	}
	return &ComplianceService{store: store, recorder: recorder, now: time.Now}, nil
}

// SetLegalHold flips the legal hold flag on an entity. While held, archive,
// PII strip and ownership changes are blocked for everyone below superadmin.
func (s *ComplianceService) SetLegalHold(ctx context.Context, actor auth.Actor, entityType, id string, hold bool) error {
	entry, err := s.setLegalHold(ctx, actor, entityType, id, hold)
	observe(entityType, opLegalHold, err)
	if err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}

func (s *ComplianceService) setLegalHold(ctx context.Context, actor auth.Actor, entityType, id string, hold bool) (*audit.Entry, error) {
	id, err := requireID(id, "entity id")
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAnyRole(actor, auth.RoleSuperAdmin); err != nil {
		return nil, err
	}

	action := "legal_hold_set"
	if !hold {
		action = "legal_hold_cleared"
	}

	var entry *audit.Entry
	err = s.store.InTx(ctx, func(tx Tx) error {
		orgID, err := s.applyToEntity(ctx, tx, entityType, id, func(ts *Timesheet) {
			ts.LegalHold = hold
		}, func(swap *CrewSwap) {
			swap.LegalHold = hold
		}, func(a *CrewAssignment) {
			a.LegalHold = hold
		})
		if err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, action, entityType, id, orgID, actor.UserID, map[string]any{
			"hold": hold,
		})
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// StripPII irreversibly redacts person-identifying fields on an entity and
// marks it stripped. An active legal hold blocks the strip unless the
// override is supplied.
func (s *ComplianceService) StripPII(ctx context.Context, actor auth.Actor, entityType, id string, override bool) error {
	entry, err := s.stripPII(ctx, actor, entityType, id, override)
	observe(entityType, opStripPII, err)
	if err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}

func (s *ComplianceService) stripPII(ctx context.Context, actor auth.Actor, entityType, id string, override bool) (*audit.Entry, error) {
	id, err := requireID(id, "entity id")
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureAnyRole(actor, auth.RoleSuperAdmin); err != nil {
		return nil, err
	}

	guard := withStripGuard(actor, override)
	var entry *audit.Entry
	err = s.store.InTx(ctx, func(tx Tx) error {
		orgID, err := s.applyToEntity(ctx, tx, entityType, id, func(ts *Timesheet) {
			ts.PersonID = redacted
			ts.CreatedBy = redacted
			for i := range ts.Entries {
				ts.Entries[i].Notes = ""
			}
			ts.PiiStripped = true
		}, func(swap *CrewSwap) {
			swap.PersonID = redacted
			swap.RequestedBy = redacted
			swap.PiiStripped = true
		}, func(a *CrewAssignment) {
			a.PersonID = redacted
			a.CreatedBy = redacted
			a.PiiStripped = true
		}, guard)
		if err != nil {
			return err
		}
		entry = s.recorder.Entry(ctx, "pii_stripped", entityType, id, orgID, actor.UserID, nil)
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// stripGuard is threaded through applyToEntity so the legal-hold check runs
// against the freshly loaded entity inside the transaction.
type stripGuard struct {
	actor    auth.Actor
	override bool
	active   bool
}

func withStripGuard(actor auth.Actor, override bool) stripGuard {
	return stripGuard{actor: actor, override: override, active: true}
}

func (g stripGuard) check(legalHold, alreadyStripped bool) error {
	if !g.active {
		return nil
	}
	if alreadyStripped {
		return fmt.Errorf("%w: entity is already stripped", ErrInvalidInput)
	}
	return ensureMutable(legalHold, g.actor, g.override, "strip pii")
}

// applyToEntity loads the entity named by entityType, runs the matching
// mutation, and writes it back with the status-compare update. It returns
// the entity's organization id for the audit entry.
func (s *ComplianceService) applyToEntity(
	ctx context.Context,
	tx Tx,
	entityType, id string,
	onTimesheet func(*Timesheet),
	onSwap func(*CrewSwap),
	onAssignment func(*CrewAssignment),
	guards ...stripGuard,
) (string, error) {
	var guard stripGuard
	if len(guards) > 0 {
		guard = guards[0]
	}
	now := s.now().UTC()

	switch entityType {
	case entityTimesheet:
		ts, err := tx.Timesheets().Find(ctx, id)
		if err != nil {
			return "", err
		}
		if err := guard.check(ts.LegalHold, ts.PiiStripped); err != nil {
			return "", err
		}
		onTimesheet(ts)
		ts.UpdatedAt = now
		return ts.OrgID, tx.Timesheets().Update(ctx, ts, ts.Status)
	case entityCrewSwap:
		swap, err := tx.CrewSwaps().Find(ctx, id)
		if err != nil {
			return "", err
		}
		if err := guard.check(swap.LegalHold, swap.PiiStripped); err != nil {
			return "", err
		}
		onSwap(swap)
		swap.UpdatedAt = now
		return swap.OrgID, tx.CrewSwaps().Update(ctx, swap, swap.Status)
	case entityCrewAssignment:
		a, err := tx.CrewAssignments().Find(ctx, id)
		if err != nil {
			return "", err
		}
		if err := guard.check(a.LegalHold, a.PiiStripped); err != nil {
			return "", err
		}
		onAssignment(a)
		a.UpdatedAt = now
		return a.OrgID, tx.CrewAssignments().Update(ctx, a, a.Status)
	default:
		return "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, entityType)
	}
}
