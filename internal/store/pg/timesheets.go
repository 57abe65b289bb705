package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crewplane.org/internal/workforce"
)

type timesheetRepo struct {
	q querier
}

const timesheetCols = `
	id, org_id, project_id, person_id, coalesce(crew_id,''), work_date, status, entries,
	coalesce(created_by,''), submitted_at,
	coalesce(approved_by,''), approved_at,
	coalesce(rejected_by,''), rejected_at, coalesce(rejection_reason,''),
	archived_at, pii_stripped, legal_hold, created_at, updated_at`

func (r *timesheetRepo) Create(ctx context.Context, ts *workforce.Timesheet) error {
	entries, err := json.Marshal(ts.Entries)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		insert into timesheets(
			id, org_id, project_id, person_id, crew_id, work_date, status, entries,
			created_by, pii_stripped, legal_hold, created_at, updated_at
		) values ($1,$2,$3,$4,nullif($5,''),$6,$7,$8,nullif($9,''),$10,$11,$12,$13)
	`, ts.ID, ts.OrgID, ts.ProjectID, ts.PersonID, ts.CrewID, ts.WorkDate, ts.Status,
		entries, ts.CreatedBy, ts.PiiStripped, ts.LegalHold, ts.CreatedAt, ts.UpdatedAt)
	return err
}

func (r *timesheetRepo) Find(ctx context.Context, id string) (*workforce.Timesheet, error) {
	row := r.q.QueryRowContext(ctx, `select`+timesheetCols+` from timesheets where id=$1`, id)
	ts, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: timesheet %s", workforce.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *timesheetRepo) Update(ctx context.Context, ts *workforce.Timesheet, expect workforce.TimesheetStatus) error {
	entries, err := json.Marshal(ts.Entries)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		update timesheets set
			crew_id=nullif($3,''), status=$4, entries=$5,
			submitted_at=$6,
			approved_by=nullif($7,''), approved_at=$8,
			rejected_by=nullif($9,''), rejected_at=$10, rejection_reason=nullif($11,''),
			archived_at=$12, pii_stripped=$13, legal_hold=$14,
			person_id=$15, created_by=nullif($16,''), updated_at=$17
		where id=$1 and status=$2
	`, ts.ID, expect, ts.CrewID, ts.Status, entries,
		nullTime(ts.SubmittedAt),
		ts.ApprovedBy, nullTime(ts.ApprovedAt),
		ts.RejectedBy, nullTime(ts.RejectedAt), ts.RejectionReason,
		nullTime(ts.ArchivedAt), ts.PiiStripped, ts.LegalHold,
		ts.PersonID, ts.CreatedBy, ts.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return checkMoved(ctx, r.q, "timesheets", "timesheet", ts.ID)
	}
	return nil
}

func (r *timesheetRepo) List(ctx context.Context, filter workforce.TimesheetFilter) ([]workforce.Timesheet, int, error) {
	where, args := timesheetWhere(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `select count(*) from timesheets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Page*filter.Limit)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`select%s from timesheets%s order by created_at desc, id desc limit $%d offset $%d`,
		timesheetCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []workforce.Timesheet{}
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *ts)
	}
	return items, total, rows.Err()
}

func (r *timesheetRepo) ExistsActiveDuplicate(ctx context.Context, orgID, projectID, personID string, workDate time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		select exists(
			select 1 from timesheets
			where org_id=$1 and project_id=$2 and person_id=$3 and work_date=$4
			  and archived_at is null
		)
	`, orgID, projectID, personID, workDate).Scan(&exists)
	return exists, err
}

func timesheetWhere(f workforce.TimesheetFilter) (string, []any) {
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
		add("work_date>=$%d", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		add("work_date<=$%d", f.DateTo)
	}
	if !f.IncludeArchived {
		conds = append(conds, "archived_at is null")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimesheet(row rowScanner) (*workforce.Timesheet, error) {
	var (
		ts          workforce.Timesheet
		entries     []byte
		submittedAt sql.NullTime
		approvedAt  sql.NullTime
		rejectedAt  sql.NullTime
		archivedAt  sql.NullTime
	)
	err := row.Scan(
		&ts.ID, &ts.OrgID, &ts.ProjectID, &ts.PersonID, &ts.CrewID, &ts.WorkDate, &ts.Status, &entries,
		&ts.CreatedBy, &submittedAt,
		&ts.ApprovedBy, &approvedAt,
		&ts.RejectedBy, &rejectedAt, &ts.RejectionReason,
		&archivedAt, &ts.PiiStripped, &ts.LegalHold, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &ts.Entries); err != nil {
			return nil, err
		}
	}
	ts.SubmittedAt = timePtr(submittedAt)
	ts.ApprovedAt = timePtr(approvedAt)
	ts.RejectedAt = timePtr(rejectedAt)
	ts.ArchivedAt = timePtr(archivedAt)
	return &ts, nil
}
