package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crewplane.org/internal/workforce"
)

type timesheetCol struct {
	s  *Store
	tx *memTx
}

func (c *timesheetCol) Create(ctx context.Context, ts *workforce.Timesheet) error {
	stored := ts.Clone()
	return run(c.s, c.tx, func() error {
		if _, ok := c.s.timesheets[stored.ID]; ok {
			return fmt.Errorf("%w: timesheet %s already exists", workforce.ErrConflict, stored.ID)
		}
		return nil
	}, func() {
		c.s.timesheets[stored.ID] = stored
	})
}

func (c *timesheetCol) Find(ctx context.Context, id string) (*workforce.Timesheet, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	ts, ok := c.s.timesheets[id]
	if !ok {
		return nil, fmt.Errorf("%w: timesheet %s", workforce.ErrNotFound, id)
	}
	return ts.Clone(), nil
}

func (c *timesheetCol) Update(ctx context.Context, ts *workforce.Timesheet, expect workforce.TimesheetStatus) error {
	stored := ts.Clone()
	return run(c.s, c.tx, func() error {
		cur, ok := c.s.timesheets[stored.ID]
		if !ok {
			return fmt.Errorf("%w: timesheet %s", workforce.ErrNotFound, stored.ID)
		}
		if cur.Status != expect {
			return fmt.Errorf("%w: timesheet %s moved from %s", workforce.ErrConflict, stored.ID, expect)
		}
		return nil
	}, func() {
		c.s.timesheets[stored.ID] = stored
	})
}

func (c *timesheetCol) List(ctx context.Context, filter workforce.TimesheetFilter) ([]workforce.Timesheet, int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var matched []workforce.Timesheet
	for _, ts := range c.s.timesheets {
		if !matchTimesheet(ts, filter) {
			continue
		}
		matched = append(matched, *ts.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	return pageSlice(matched, filter.Page, filter.Limit), total, nil
}

func (c *timesheetCol) ExistsActiveDuplicate(ctx context.Context, orgID, projectID, personID string, workDate time.Time) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, ts := range c.s.timesheets {
		if ts.ArchivedAt != nil {
			continue
		}
		if ts.OrgID == orgID && ts.ProjectID == projectID && ts.PersonID == personID && ts.WorkDate.Equal(workDate) {
			return true, nil
		}
	}
	return false, nil
}

func matchTimesheet(ts *workforce.Timesheet, f workforce.TimesheetFilter) bool {
	if f.OrgID != "" && ts.OrgID != f.OrgID {
		return false
	}
	if f.ProjectID != "" && ts.ProjectID != f.ProjectID {
		return false
	}
	if f.PersonID != "" && ts.PersonID != f.PersonID {
		return false
	}
	if f.CrewID != "" && ts.CrewID != f.CrewID {
		return false
	}
	if f.Status != "" && ts.Status != f.Status {
		return false
	}
	if !f.DateFrom.IsZero() && ts.WorkDate.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && ts.WorkDate.After(f.DateTo) {
		return false
	}
	if ts.ArchivedAt != nil && !f.IncludeArchived {
		return false
	}
	return true
}
