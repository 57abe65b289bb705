package memory

import (
	"context"
	"fmt"
	"sort"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/workforce"
)

type auditCol struct {
	s  *Store
	tx *memTx
}

func (c *auditCol) Append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: audit entry is nil", workforce.ErrInvalidInput)
	}
	stored := *entry
	if entry.Metadata != nil {
		stored.Metadata = make(map[string]any, len(entry.Metadata))
		for k, v := range entry.Metadata {
			stored.Metadata[k] = v
		}
	}
	return run(c.s, c.tx, nil, func() {
		c.s.entries = append(c.s.entries, stored)
	})
}

func (c *auditCol) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var matched []audit.Entry
	for _, e := range c.s.entries {
		if !matchEntry(e, filter) {
			continue
		}
		matched = append(matched, e)
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

func matchEntry(e audit.Entry, f audit.Filter) bool {
	if f.OrgID != "" && e.OrgID != f.OrgID {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}
