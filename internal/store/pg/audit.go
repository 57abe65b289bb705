package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crewplane.org/internal/audit"
)

type auditRepo struct {
	q querier
}

func (r *auditRepo) Append(ctx context.Context, entry *audit.Entry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx, `
		insert into audit_log(
			id, event_type, action, entity_type, entity_id, org_id,
			actor_id, request_id, metadata, created_at
		) values ($1,$2,$3,$4,$5,$6,nullif($7,''),nullif($8,''),$9,$10)
	`, entry.ID, entry.EventType, entry.Action, entry.EntityType, entry.EntityID,
		entry.OrgID, entry.ActorID, entry.RequestID, metadata, entry.CreatedAt)
	return err
}

func (r *auditRepo) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	where, args := auditWhere(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `select count(*) from audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Page*filter.Limit)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(`
		select id, event_type, action, entity_type, entity_id, org_id,
		       coalesce(actor_id,''), coalesce(request_id,''), metadata, created_at
		from audit_log%s order by created_at desc, id desc limit $%d offset $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []audit.Entry{}
	for rows.Next() {
		var (
			e        audit.Entry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.Action, &e.EntityType, &e.EntityID,
			&e.OrgID, &e.ActorID, &e.RequestID, &metadata, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, 0, err
			}
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func auditWhere(f audit.Filter) (string, []any) {
	conds := []string{}
	args := []any{}
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OrgID != "" {
		add("org_id=$%d", f.OrgID)
	}
	if f.EntityType != "" {
		add("entity_type=$%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id=$%d", f.EntityID)
	}
	if f.ActorID != "" {
		add("actor_id=$%d", f.ActorID)
	}
	if !f.From.IsZero() {
		add("created_at>=$%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at<=$%d", f.To)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}
