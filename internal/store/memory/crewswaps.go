package memory

import (
	"context"
	"fmt"
	"sort"

	"crewplane.org/internal/workforce"
)

type crewSwapCol struct {
	s  *Store
	tx *memTx
}

func (c *crewSwapCol) Create(ctx context.Context, swap *workforce.CrewSwap) error {
	stored := swap.Clone()
	return run(c.s, c.tx, func() error {
		if _, ok := c.s.swaps[stored.ID]; ok {
			return fmt.Errorf("%w: crew swap %s already exists", workforce.ErrConflict, stored.ID)
		}
		return nil
	}, func() {
		c.s.swaps[stored.ID] = stored
	})
}

func (c *crewSwapCol) Find(ctx context.Context, id string) (*workforce.CrewSwap, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	swap, ok := c.s.swaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: crew swap %s", workforce.ErrNotFound, id)
	}
	return swap.Clone(), nil
}

func (c *crewSwapCol) Update(ctx context.Context, swap *workforce.CrewSwap, expect workforce.CrewSwapStatus) error {
	stored := swap.Clone()
	return run(c.s, c.tx, func() error {
		cur, ok := c.s.swaps[stored.ID]
		if !ok {
			return fmt.Errorf("%w: crew swap %s", workforce.ErrNotFound, stored.ID)
		}
		if cur.Status != expect {
			return fmt.Errorf("%w: crew swap %s moved from %s", workforce.ErrConflict, stored.ID, expect)
		}
		return nil
	}, func() {
		c.s.swaps[stored.ID] = stored
	})
}

func (c *crewSwapCol) List(ctx context.Context, filter workforce.CrewSwapFilter) ([]workforce.CrewSwap, int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var matched []workforce.CrewSwap
	for _, swap := range c.s.swaps {
		if !matchCrewSwap(swap, filter) {
			continue
		}
		matched = append(matched, *swap.Clone())
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

func (c *crewSwapCol) ExistsOpenForPerson(ctx context.Context, orgID, projectID, personID string) (bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, swap := range c.s.swaps {
		if swap.ArchivedAt != nil {
			continue
		}
		if swap.Status != workforce.SwapRequested && swap.Status != workforce.SwapApproved {
			continue
		}
		if swap.OrgID == orgID && swap.ProjectID == projectID && swap.PersonID == personID {
			return true, nil
		}
	}
	return false, nil
}

func matchCrewSwap(swap *workforce.CrewSwap, f workforce.CrewSwapFilter) bool {
	if f.OrgID != "" && swap.OrgID != f.OrgID {
		return false
	}
	if f.ProjectID != "" && swap.ProjectID != f.ProjectID {
		return false
	}
	if f.PersonID != "" && swap.PersonID != f.PersonID {
		return false
	}
	if f.FromCrewID != "" && swap.FromCrewID != f.FromCrewID {
		return false
	}
	if f.ToCrewID != "" && swap.ToCrewID != f.ToCrewID {
		return false
	}
	if f.Status != "" && swap.Status != f.Status {
		return false
	}
	if swap.ArchivedAt != nil && !f.IncludeArchived {
		return false
	}
	return true
}
