package workforce

import (
	"context"
	"time"

	"crewplane.org/internal/audit"
)

// Tx is the transaction-scoped view of persistence. Every mutating service
// operation runs against one Tx so the entity write and its audit entry
// commit or roll back together.
type Tx interface {
	Timesheets() TimesheetStore
	CrewSwaps() CrewSwapStore
	CrewAssignments() CrewAssignmentStore
	Audit() audit.Store
}

// Store is the persistence contract. Reads may use the store directly;
// mutations go through InTx.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// TimesheetFilter selects timesheets for listing.
type TimesheetFilter struct {
	OrgID           string
	ProjectID       string
	PersonID        string
	CrewID          string
	Status          TimesheetStatus
	DateFrom        time.Time
	DateTo          time.Time
	IncludeArchived bool
	Page            int
	Limit           int
}

// CrewSwapFilter selects crew swaps for listing.
type CrewSwapFilter struct {
	OrgID           string
	ProjectID       string
	PersonID        string
	FromCrewID      string
	ToCrewID        string
	Status          CrewSwapStatus
	IncludeArchived bool
	Page            int
	Limit           int
}

// CrewAssignmentFilter selects crew assignments for listing.
type CrewAssignmentFilter struct {
	OrgID           string
	ProjectID       string
	PersonID        string
	CrewID          string
	Status          CrewAssignmentStatus
	DateFrom        time.Time
	DateTo          time.Time
	IncludeArchived bool
	Page            int
	Limit           int
}

// TimesheetStore persists timesheets. Update compares the persisted status
// against expect and fails with ErrConflict when another transaction moved
// the row first.
type TimesheetStore interface {
	Create(ctx context.Context, ts *Timesheet) error
	Find(ctx context.Context, id string) (*Timesheet, error)
	Update(ctx context.Context, ts *Timesheet, expect TimesheetStatus) error
	List(ctx context.Context, filter TimesheetFilter) ([]Timesheet, int, error)
	// ExistsActiveDuplicate reports whether a non-archived timesheet
	// already exists for the natural key.
	ExistsActiveDuplicate(ctx context.Context, orgID, projectID, personID string, workDate time.Time) (bool, error)
}

// CrewSwapStore persists crew swaps.
type CrewSwapStore interface {
	Create(ctx context.Context, swap *CrewSwap) error
	Find(ctx context.Context, id string) (*CrewSwap, error)
	Update(ctx context.Context, swap *CrewSwap, expect CrewSwapStatus) error
	List(ctx context.Context, filter CrewSwapFilter) ([]CrewSwap, int, error)
	// ExistsOpenForPerson reports whether the person already has a
	// non-archived swap in a requested or approved state on the project.
	ExistsOpenForPerson(ctx context.Context, orgID, projectID, personID string) (bool, error)
}

// CrewAssignmentStore persists crew assignments.
type CrewAssignmentStore interface {
	Create(ctx context.Context, a *CrewAssignment) error
	Find(ctx context.Context, id string) (*CrewAssignment, error)
	Update(ctx context.Context, a *CrewAssignment, expect CrewAssignmentStatus) error
	List(ctx context.Context, filter CrewAssignmentFilter) ([]CrewAssignment, int, error)
	// ExistsOverlapping reports whether the person already has an active,
	// non-archived assignment on the crew whose date range overlaps
	// [start, end). A nil end is open-ended.
	ExistsOverlapping(ctx context.Context, orgID, personID, crewID string, start time.Time, end *time.Time, excludeID string) (bool, error)
}
