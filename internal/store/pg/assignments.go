package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"crewplane.org/internal/workforce"
)

type assignmentRepo struct {
	q querier
}

const assignmentCols = `
	id, org_id, project_id, person_id, crew_id, coalesce(role_key,''),
	start_date, end_date, status, coalesce(created_by,''),
	archived_at, pii_stripped, legal_hold, created_at, updated_at`

func (r *assignmentRepo) Create(ctx context.Context, a *workforce.CrewAssignment) error {
	_, err := r.q.ExecContext(ctx, `
		insert into crew_assignments(
			id, org_id, project_id, person_id, crew_id, role_key,
			start_date, end_date, status, created_by,
			pii_stripped, legal_hold, created_at, updated_at
		) values ($1,$2,$3,$4,$5,nullif($6,''),$7,$8,$9,nullif($10,''),$11,$12,$13,$14)
	`, a.ID, a.OrgID, a.ProjectID, a.PersonID, a.CrewID, a.RoleKey,
		a.StartDate, nullTime(a.EndDate), a.Status, a.CreatedBy,
		a.PiiStripped, a.LegalHold, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *assignmentRepo) Find(ctx context.Context, id string) (*workforce.CrewAssignment, error) {
	row := r.q.QueryRowContext(ctx, `select`+assignmentCols+` from crew_assignments where id=$1`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: crew assignment %s", workforce.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepo) Update(ctx context.Context, a *workforce.CrewAssignment, expect workforce.CrewAssignmentStatus) error {
	res, err := r.q.ExecContext(ctx, `
		update crew_assignments set
			role_key=nullif($3,''), start_date=$4, end_date=$5, status=$6,
			archived_at=$7, pii_stripped=$8, legal_hold=$9,
			person_id=$10, created_by=nullif($11,''), updated_at=$12
		where id=$1 and status=$2
	`, a.ID, expect, a.RoleKey, a.StartDate, nullTime(a.EndDate), a.Status,
		nullTime(a.ArchivedAt), a.PiiStripped, a.LegalHold,
		a.PersonID, a.CreatedBy, a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return checkMoved(ctx, r.q, "crew_assignments", "crew assignment", a.ID)
	}
	return nil
}

func (r *assignmentRepo) List(ctx context.Context, filter workforce.CrewAssignmentFilter) ([]workforce.CrewAssignment, int, error) {
	where, args := assignmentWhere(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `select count(*) from crew_assignments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Page*filter.Limit)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`select%s from crew_assignments%s order by start_date desc, id desc limit $%d offset $%d`,
		assignmentCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []workforce.CrewAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *a)
	}
	return items, total, rows.Err()
}

func (r *assignmentRepo) ExistsOverlapping(ctx context.Context, orgID, personID, crewID string, start time.Time, end *time.Time, excludeID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		select exists(
			select 1 from crew_assignments
			where org_id=$1 and person_id=$2 and crew_id=$3
			  and id <> $4
			  and status='active'
			  and archived_at is null
			  and ($5::date is null or start_date < $5)
			  and (end_date is null or end_date > $6)
		)
	`, orgID, personID, crewID, excludeID, nullTime(end), start).Scan(&exists)
	return exists, err
}

func assignmentWhere(f workforce.CrewAssignmentFilter) (string, []any) {
	conds := []string{}
	args := []any{}
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OrgID != "" {
		add("org_id=$%d", f.OrgID)
	}
	if f.ProjectID != "" {
		add("project_id=$%d", f.ProjectID)
	}
	if f.PersonID != "" {
		add("person_id=$%d", f.PersonID)
	}
	if f.CrewID != "" {
		add("crew_id=$%d", f.CrewID)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if !f.DateFrom.IsZero() {
		add("(end_date is null or end_date > $%d)", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		add("start_date < $%d", f.DateTo)
	}
	if !f.IncludeArchived {
		conds = append(conds, "archived_at is null")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

func scanAssignment(row rowScanner) (*workforce.CrewAssignment, error) {
	var (
		a          workforce.CrewAssignment
		endDate    sql.NullTime
		archivedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.OrgID, &a.ProjectID, &a.PersonID, &a.CrewID, &a.RoleKey,
		&a.StartDate, &endDate, &a.Status, &a.CreatedBy,
		&archivedAt, &a.PiiStripped, &a.LegalHold, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.EndDate = timePtr(endDate)
	a.ArchivedAt = timePtr(archivedAt)
	return &a, nil
}
