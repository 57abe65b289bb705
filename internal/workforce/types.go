// Package workforce implements the tenant-scoped lifecycle entities and the
// services that move them through their approval workflows: timesheets,
// crew swaps and crew assignments.
package workforce

import (
	"fmt"
	"strings"
	"time"
)

// TimesheetStatus is the closed status vocabulary for timesheets.
type TimesheetStatus string

const (
	TimesheetDraft     TimesheetStatus = "draft"
	TimesheetSubmitted TimesheetStatus = "submitted"
	TimesheetApproved  TimesheetStatus = "approved"
	TimesheetRejected  TimesheetStatus = "rejected"
)

// ParseTimesheetStatus validates a raw status value. Unknown values are
// invalid input, never silently defaulted.
func ParseTimesheetStatus(raw string) (TimesheetStatus, error) {
	switch s := TimesheetStatus(strings.TrimSpace(raw)); s {
	case TimesheetDraft, TimesheetSubmitted, TimesheetApproved, TimesheetRejected:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown timesheet status %q", ErrInvalidInput, raw)
	}
}

// CrewSwapStatus is the closed status vocabulary for crew swaps.
type CrewSwapStatus string

const (
	SwapRequested CrewSwapStatus = "requested"
	SwapApproved  CrewSwapStatus = "approved"
	SwapRejected  CrewSwapStatus = "rejected"
	SwapCompleted CrewSwapStatus = "completed"
	SwapCancelled CrewSwapStatus = "cancelled"
)

// ParseCrewSwapStatus validates a raw status value.
func ParseCrewSwapStatus(raw string) (CrewSwapStatus, error) {
	switch s := CrewSwapStatus(strings.TrimSpace(raw)); s {
	case SwapRequested, SwapApproved, SwapRejected, SwapCompleted, SwapCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown crew swap status %q", ErrInvalidInput, raw)
	}
}

// CrewAssignmentStatus is the closed status vocabulary for assignments.
// Archival is tracked by ArchivedAt, not by a status value.
type CrewAssignmentStatus string

const (
	AssignmentActive   CrewAssignmentStatus = "active"
	AssignmentInactive CrewAssignmentStatus = "inactive"
)

// ParseCrewAssignmentStatus validates a raw status value.
func ParseCrewAssignmentStatus(raw string) (CrewAssignmentStatus, error) {
	switch s := CrewAssignmentStatus(strings.TrimSpace(raw)); s {
	case AssignmentActive, AssignmentInactive:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown crew assignment status %q", ErrInvalidInput, raw)
	}
}

// TimesheetEntry is one line of work on a timesheet. Entries are owned by
// the timesheet and replaced wholesale on update.
type TimesheetEntry struct {
	CostCode  string  `json:"cost_code"`
	Hours     float64 `json:"hours"`
	HoursType string  `json:"hours_type,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Timesheet records a person's work on a project for one date.
type Timesheet struct {
	ID        string          `json:"id"`
	OrgID     string          `json:"org_id"`
	ProjectID string          `json:"project_id"`
	PersonID  string          `json:"person_id"`
	CrewID    string          `json:"crew_id,omitempty"`
	WorkDate  time.Time       `json:"work_date"`
	Status    TimesheetStatus `json:"status"`
	Entries   []TimesheetEntry `json:"entries,omitempty"`

	CreatedBy       string     `json:"created_by,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	PiiStripped bool       `json:"pii_stripped"`
	LegalHold   bool       `json:"legal_hold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand across store boundaries.
func (t *Timesheet) Clone() *Timesheet {
	if t == nil {
		return nil
	}
	out := *t
	if t.Entries != nil {
		out.Entries = make([]TimesheetEntry, len(t.Entries))
		copy(out.Entries, t.Entries)
	}
	return &out
}

// CrewSwap is a request to move a person between crews on a project.
type CrewSwap struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	ProjectID  string         `json:"project_id"`
	PersonID   string         `json:"person_id"`
	FromCrewID string         `json:"from_crew_id"`
	ToCrewID   string         `json:"to_crew_id"`
	Status     CrewSwapStatus `json:"status"`

	RequestedBy     string     `json:"requested_by,omitempty"`
	RequestedAt     *time.Time `json:"requested_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CompletedBy     string     `json:"completed_by,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledBy     string     `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`

	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	PiiStripped bool       `json:"pii_stripped"`
	LegalHold   bool       `json:"legal_hold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy safe to hand across store boundaries.
func (s *CrewSwap) Clone() *CrewSwap {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// CrewAssignment places a person on a crew for a date range. A nil EndDate
// means the assignment is open-ended.
type CrewAssignment struct {
	ID        string               `json:"id"`
	OrgID     string               `json:"org_id"`
	ProjectID string               `json:"project_id"`
	PersonID  string               `json:"person_id"`
	CrewID    string               `json:"crew_id"`
	RoleKey   string               `json:"role_key,omitempty"`
	StartDate time.Time            `json:"start_date"`
	EndDate   *time.Time           `json:"end_date,omitempty"`
	Status    CrewAssignmentStatus `json:"status"`

	CreatedBy string `json:"created_by,omitempty"`

	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	PiiStripped bool       `json:"pii_stripped"`
	LegalHold   bool       `json:"legal_hold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy safe to hand across store boundaries.
func (a *CrewAssignment) Clone() *CrewAssignment {
	if a == nil {
		return nil
	}
	out := *a
	if a.EndDate != nil {
		end := *a.EndDate
		out.EndDate = &end
	}
	return &out
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DateOnly truncates a timestamp to its UTC calendar date. Work dates and
// assignment ranges compare at day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RangesOverlap compares two closed-start/open-end day ranges. A nil end is
// open-ended. Ranges sharing only a boundary day do not overlap.
func RangesOverlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && !bStart.Before(*aEnd) {
		return false
	}
	if bEnd != nil && !aStart.Before(*bEnd) {
		return false
	}
	return true
}
