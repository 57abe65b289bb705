package workforce

import (
	"errors"
	"fmt"
	"strings"

	"crewplane.org/internal/auth"
	"crewplane.org/internal/obs"
	"crewplane.org/internal/workflow"
)

// Lifecycle operation names. They key the transition tables and label the
// audit trail and metrics.
const (
	OpSubmit    workflow.Operation = "submit"
	OpApprove   workflow.Operation = "approve"
	OpReject    workflow.Operation = "reject"
	OpComplete  workflow.Operation = "complete"
	OpCancel    workflow.Operation = "cancel"
	opCreate                       = "create"
	opUpdate                       = "update"
	opArchive                      = "archive"
	opUnarchive                    = "unarchive"
)

// Audit entity type tags.
const (
	entityTimesheet      = "timesheet"
	entityCrewSwap       = "crew_swap"
	entityCrewAssignment = "crew_assignment"
)

// adminTiers gates approval-class operations. Role expansion lets every
// admin tier (org_owner, org_admin, platform roles) satisfy it.
var adminTiers = []auth.Role{auth.RoleAdmin}

// entryRoles gates creation and submission of workforce records.
var entryRoles = []auth.Role{
	auth.RoleAdmin,
	auth.RoleManager,
	auth.RolePM,
	auth.RoleForeman,
	auth.RoleCrewLead,
}

// anyRole admits every known role; pure read paths use it.
var anyRole = []auth.Role{auth.RoleUser}

// transitionErr maps workflow lookup failures to the invalid-input kind.
// Authorization failures pass through untouched.
func transitionErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, workflow.ErrIllegalTransition) || errors.Is(err, workflow.ErrReasonRequired) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// ensureMutable enforces the legal-hold gate for destructive operations
// (archive, PII strip, ownership change). Only a superadmin supplying the
// explicit override may proceed while the hold is active.
func ensureMutable(legalHold bool, actor auth.Actor, override bool, op string) error {
	if !legalHold {
		return nil
	}
	if override && actor.HasRole(auth.RoleSuperAdmin) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s while legal hold is active", ErrForbidden, op)
}

// observe records the operation outcome metric.
func observe(entity, op string, err error) {
	obs.ObserveTransition(entity, op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "bad_request"
	default:
		return "error"
	}
}

func requireID(id, what string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, what)
	}
	return id, nil
}

func clampPaging(page, limit int) (int, int) {
	if page < 0 {
		page = 0
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// resolveOrgScope pins non-platform actors to their own organization and
// verifies the requested scope is reachable.
func resolveOrgScope(requested string, actor auth.Actor) (string, error) {
	requested = strings.TrimSpace(requested)
	if actor.IsPlatform() {
		if requested == "" {
			requested = actor.OrgID
		}
		if requested == "" {
			return "", fmt.Errorf("%w: org id is required", ErrInvalidInput)
		}
		return requested, nil
	}
	if requested == "" {
		requested = actor.OrgID
	}
	if err := auth.EnsureSameOrg(requested, actor); err != nil {
		return "", err
	}
	return requested, nil
}

// ensureArchiveVisibility rejects includeArchived for roles that may not
// see archived records.
func ensureArchiveVisibility(includeArchived bool, actor auth.Actor) error {
	if includeArchived && !auth.CanViewArchived(actor) {
		return fmt.Errorf("%w: archived records require an admin role", ErrForbidden)
	}
	return nil
}
