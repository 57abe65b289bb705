package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"crewplane.org/internal/workforce"
)

type crewSwapRepo struct {
	q querier
}

const crewSwapCols = `
	id, org_id, project_id, person_id, from_crew_id, to_crew_id, status,
	coalesce(requested_by,''), requested_at,
	coalesce(approved_by,''), approved_at,
	coalesce(rejected_by,''), rejected_at, coalesce(rejection_reason,''),
	coalesce(completed_by,''), completed_at,
	coalesce(cancelled_by,''), cancelled_at, coalesce(cancel_reason,''),
	archived_at, pii_stripped, legal_hold, created_at, updated_at`

func (r *crewSwapRepo) Create(ctx context.Context, swap *workforce.CrewSwap) error {
	_, err := r.q.ExecContext(ctx, `
		insert into crew_swaps(
			id, org_id, project_id, person_id, from_crew_id, to_crew_id, status,
			requested_by, requested_at, pii_stripped, legal_hold, created_at, updated_at
		) values ($1,$2,$3,$4,$5,$6,$7,nullif($8,''),$9,$10,$11,$12,$13)
	`, swap.ID, swap.OrgID, swap.ProjectID, swap.PersonID, swap.FromCrewID, swap.ToCrewID,
		swap.Status, swap.RequestedBy, nullTime(swap.RequestedAt),
		swap.PiiStripped, swap.LegalHold, swap.CreatedAt, swap.UpdatedAt)
	return err
}

func (r *crewSwapRepo) Find(ctx context.Context, id string) (*workforce.CrewSwap, error) {
	row := r.q.QueryRowContext(ctx, `select`+crewSwapCols+` from crew_swaps where id=$1`, id)
	swap, err := scanCrewSwap(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: crew swap %s", workforce.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return swap, nil
}

func (r *crewSwapRepo) Update(ctx context.Context, swap *workforce.CrewSwap, expect workforce.CrewSwapStatus) error {
	res, err := r.q.ExecContext(ctx, `
		update crew_swaps set
			status=$3,
			approved_by=nullif($4,''), approved_at=$5,
			rejected_by=nullif($6,''), rejected_at=$7, rejection_reason=nullif($8,''),
			completed_by=nullif($9,''), completed_at=$10,
			cancelled_by=nullif($11,''), cancelled_at=$12, cancel_reason=nullif($13,''),
			archived_at=$14, pii_stripped=$15, legal_hold=$16,
			person_id=$17, requested_by=nullif($18,''), updated_at=$19
		where id=$1 and status=$2
	`, swap.ID, expect, swap.Status,
		swap.ApprovedBy, nullTime(swap.ApprovedAt),
		swap.RejectedBy, nullTime(swap.RejectedAt), swap.RejectionReason,
		swap.CompletedBy, nullTime(swap.CompletedAt),
		swap.CancelledBy, nullTime(swap.CancelledAt), swap.CancelReason,
		nullTime(swap.ArchivedAt), swap.PiiStripped, swap.LegalHold,
		swap.PersonID, swap.RequestedBy, swap.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return checkMoved(ctx, r.q, "crew_swaps", "crew swap", swap.ID)
	}
	return nil
}

func (r *crewSwapRepo) List(ctx context.Context, filter workforce.CrewSwapFilter) ([]workforce.CrewSwap, int, error) {
	where, args := crewSwapWhere(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `select count(*) from crew_swaps`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Page*filter.Limit)
	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`select%s from crew_swaps%s order by created_at desc, id desc limit $%d offset $%d`,
		crewSwapCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []workforce.CrewSwap{}
	for rows.Next() {
		swap, err := scanCrewSwap(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *swap)
	}
	return items, total, rows.Err()
}

func (r *crewSwapRepo) ExistsOpenForPerson(ctx context.Context, orgID, projectID, personID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		select exists(
			select 1 from crew_swaps
			where org_id=$1 and project_id=$2 and person_id=$3
			  and status in ('requested','approved')
			  and archived_at is null
		)
	`, orgID, projectID, personID).Scan(&exists)
	return exists, err
}

func crewSwapWhere(f workforce.CrewSwapFilter) (string, []any) {
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
	if f.FromCrewID != "" {
		add("from_crew_id=$%d", f.FromCrewID)
	}
	if f.ToCrewID != "" {
		add("to_crew_id=$%d", f.ToCrewID)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if !f.IncludeArchived {
		conds = append(conds, "archived_at is null")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " where " + strings.Join(conds, " and "), args
}

func scanCrewSwap(row rowScanner) (*workforce.CrewSwap, error) {
	var (
		swap        workforce.CrewSwap
		requestedAt sql.NullTime
		approvedAt  sql.NullTime
		rejectedAt  sql.NullTime
		completedAt sql.NullTime
		cancelledAt sql.NullTime
		archivedAt  sql.NullTime
	)
	err := row.Scan(
		&swap.ID, &swap.OrgID, &swap.ProjectID, &swap.PersonID, &swap.FromCrewID, &swap.ToCrewID, &swap.Status,
		&swap.RequestedBy, &requestedAt,
		&swap.ApprovedBy, &approvedAt,
		&swap.RejectedBy, &rejectedAt, &swap.RejectionReason,
		&swap.CompletedBy, &completedAt,
		&swap.CancelledBy, &cancelledAt, &swap.CancelReason,
		&archivedAt, &swap.PiiStripped, &swap.LegalHold, &swap.CreatedAt, &swap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	swap.RequestedAt = timePtr(requestedAt)
	swap.ApprovedAt = timePtr(approvedAt)
	swap.RejectedAt = timePtr(rejectedAt)
	swap.CompletedAt = timePtr(completedAt)
	swap.CancelledAt = timePtr(cancelledAt)
	swap.ArchivedAt = timePtr(archivedAt)
	return &swap, nil
}
