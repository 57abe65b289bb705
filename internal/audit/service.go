package audit

import (
	"context"
	"fmt"
	"strings"

	"crewplane.org/internal/auth"
)

// Service is the read path over the audit trail. Writes happen only through
// Store.Append inside entity service transactions; nothing here mutates.
type Service struct {
	store Store
}

// NewService constructs the audit read service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("audit: store is required")
	}
	return &Service{store: store}, nil
}

// ListEvents returns audit entries newest-first. Non-platform actors are
// pinned to their own organization regardless of the requested filter.
func (s *Service) ListEvents(ctx context.Context, actor auth.Actor, filter Filter) ([]Entry, int, error) {
	if err := auth.EnsureAnyRole(actor, auth.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if !actor.IsPlatform() {
		if err := auth.EnsureSameOrg(orgScopeOf(filter, actor), actor); err != nil {
			return nil, 0, err
		}
		filter.OrgID = actor.OrgID
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Page < 0 {
		filter.Page = 0
	}
	return s.store.List(ctx, filter)
}

func orgScopeOf(filter Filter, actor auth.Actor) string {
	if strings.TrimSpace(filter.OrgID) == "" {
		return actor.OrgID
	}
	return filter.OrgID
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
