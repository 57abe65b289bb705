package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crewplane.org/internal/workforce"
)

type assignmentCol struct {
	s  *Store
	tx *memTx
}

func (c *assignmentCol) Create(ctx context.Context, a *workforce.CrewAssignment) error {
	stored := a.Clone()
	return run(c.s, c.tx, func() error {
		if _, ok := c.s.assignments[stored.ID]; ok {
			return fmt.Errorf("%w: crew assignment %s already exists", workforce.ErrConflict, stored.ID)
		}
		return nil
	}, func() {
		c.s.assignments[stored.ID] = stored
	})
}

func (c *assignmentCol) Find(ctx context.Context, id string) (*workforce.CrewAssignment, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	a, ok := c.s.assignments[id]
	if !ok {
		return nil, fmt.Errorf("%w: crew assignment %s", workforce.ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (c *assignmentCol) Update(ctx context.Context, a *workforce.CrewAssignment, expect workforce.CrewAssignmentStatus) error {
	stored := a.Clone()
	return run(c.s, c.tx, func() error {
		cur, ok := c.s.assignments[stored.ID]
		if !ok {
			return fmt.Errorf("%w: crew assignment %s", workforce.ErrNotFound, stored.ID)
		}
		if cur.Status != expect {
			return fmt.Errorf("%w: crew assignment %s moved from %s", workforce.ErrConflict, stored.ID, expect)
		}
		return nil
	}, func() {
		c.s.assignments[stored.ID] = stored
	})
}

func (c *assignmentCol) List(ctx context.Context, filter workforce.CrewAssignmentFilter) ([]workforce.CrewAssignment, int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var matched []workforce.CrewAssignment
	for _, a := range c.s.assignments {
		if !matchAssignment(a, filter) {
			continue
		}
		matched = append(matched, *a.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.After(matched[j].StartDate)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	return pageSlice(matched, filter.Page, filter.Limit), total, nil
}

func (c *assignmentCol) ExistsOverlapping(ctx context.Context, orgID, personID, crewID string, start time.Time, end *time.Time, excludeID string) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, a := range c.s.assignments {
		if a.ID == excludeID || a.ArchivedAt != nil || a.Status != workforce.AssignmentActive {
			continue
		}
		if a.OrgID != orgID || a.PersonID != personID || a.CrewID != crewID {
			continue
		}
		if workforce.RangesOverlap(a.StartDate, a.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func matchAssignment(a *workforce.CrewAssignment, f workforce.CrewAssignmentFilter) bool {
	if f.OrgID != "" && a.OrgID != f.OrgID {
		return false
	}
	if f.ProjectID != "" && a.ProjectID != f.ProjectID {
		return false
	}
	if f.PersonID != "" && a.PersonID != f.PersonID {
		return false
	}
	if f.CrewID != "" && a.CrewID != f.CrewID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		var from time.Time
		var to *time.Time
		if !f.DateFrom.IsZero() {
			from = f.DateFrom
		}
		if !f.DateTo.IsZero() {
			t := f.DateTo
			to = &t
		}
		if !workforce.RangesOverlap(a.StartDate, a.EndDate, from, to) {
			return false
		}
	}
	if a.ArchivedAt != nil && !f.IncludeArchived {
		return false
	}
	return true
}
