package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/workforce"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func timesheetRows() *sqlmock.Rows {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "org_id", "project_id", "person_id", "crew_id", "work_date", "status", "entries",
		"created_by", "submitted_at",
		"approved_by", "approved_at",
		"rejected_by", "rejected_at", "rejection_reason",
		"archived_at", "pii_stripped", "legal_hold", "created_at", "updated_at",
	}).AddRow(
		"ts-1", "org-1", "proj-1", "person-1", "crew-a",
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "draft",
		[]byte(`[{"cost_code":"CC-100","hours":8}]`),
		"u-1", nil,
		"", nil,
		"", nil, "",
		nil, false, false, now, now,
	)
}

func TestTimesheetFind(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`select .* from timesheets where id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(timesheetRows())

	ts, err := s.Timesheets().Find(context.Background(), "ts-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ts.Status != workforce.TimesheetDraft {
		t.Fatalf("status = %s", ts.Status)
	}
	if len(ts.Entries) != 1 || ts.Entries[0].CostCode != "CC-100" {
		t.Fatalf("entries = %+v", ts.Entries)
	}
	if ts.SubmittedAt != nil || ts.ArchivedAt != nil {
		t.Fatal("nullable timestamps should be nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTimesheetFindNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`select .* from timesheets where id=\$1`).
		WithArgs("ts-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Timesheets().Find(context.Background(), "ts-404")
	if !errors.Is(err, workforce.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestTimesheetUpdateConflict(t *testing.T) {
	s, mock := newMock(t)
	ts := &workforce.Timesheet{ID: "ts-1", Status: workforce.TimesheetApproved}

	// Zero rows updated, the row still exists: a lost status race.
	mock.ExpectExec(`update timesheets set`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select status from timesheets where id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))

	err := s.Timesheets().Update(context.Background(), ts, workforce.TimesheetSubmitted)
	if !errors.Is(err, workforce.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	// Zero rows updated and the row is gone.
	mock.ExpectExec(`update timesheets set`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select status from timesheets where id=\$1`).
		WithArgs("ts-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err = s.Timesheets().Update(context.Background(), ts, workforce.TimesheetSubmitted)
	if !errors.Is(err, workforce.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxCommitsEntityAndAuditTogether(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`insert into timesheets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx workforce.Tx) error {
		ts := &workforce.Timesheet{
			ID: "ts-1", OrgID: "org-1", ProjectID: "proj-1", PersonID: "person-1",
			WorkDate: now, Status: workforce.TimesheetDraft, CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.Timesheets().Create(context.Background(), ts); err != nil {
			return err
		}
		return tx.Audit().Append(context.Background(), &audit.Entry{
			ID: "e1", EventType: "timesheet.created", Action: "created",
			EntityType: "timesheet", EntityID: "ts-1", OrgID: "org-1", CreatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx workforce.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestExistsActiveDuplicate(t *testing.T) {
	s, mock := newMock(t)
	workDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select exists`).
		WithArgs("org-1", "proj-1", "person-1", workDate).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	dup, err := s.Timesheets().ExistsActiveDuplicate(context.Background(), "org-1", "proj-1", "person-1", workDate)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !dup {
		t.Fatal("want duplicate")
	}
}

func TestTimesheetListBuildsFilter(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`select count\(\*\) from timesheets where org_id=\$1 and status=\$2 and archived_at is null`).
		WithArgs("org-1", "submitted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`select .* from timesheets where org_id=\$1 and status=\$2 and archived_at is null order by created_at desc, id desc limit \$3 offset \$4`).
		WithArgs("org-1", "submitted", 20, 0).
		WillReturnRows(timesheetRows())

	items, total, err := s.Timesheets().List(context.Background(), workforce.TimesheetFilter{
		OrgID:  "org-1",
		Status: workforce.TimesheetSubmitted,
		Limit:  20,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total=%d items=%d", total, len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAuditAppend(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`insert into audit_log`).
		WithArgs("e1", "timesheet.created", "created", "timesheet", "ts-1", "org-1",
			"actor-1", "req-1", []byte(`{"k":"v"}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Audit().Append(context.Background(), &audit.Entry{
		ID: "e1", EventType: "timesheet.created", Action: "created",
		EntityType: "timesheet", EntityID: "ts-1", OrgID: "org-1",
		ActorID: "actor-1", RequestID: "req-1",
		Metadata:  map[string]any{"k": "v"},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
