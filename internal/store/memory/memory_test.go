package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/store/memory"
	"crewplane.org/internal/workforce"
)

func newTimesheet(id string) *workforce.Timesheet {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &workforce.Timesheet{
		ID:        id,
		OrgID:     "org-1",
		ProjectID: "proj-1",
		PersonID:  "person-1",
		WorkDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:    workforce.TimesheetDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTxRollsBackOnError(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx workforce.Tx) error {
		require.NoError(t, tx.Timesheets().Create(ctx, newTimesheet("ts-1")))
		require.NoError(t, tx.Audit().Append(ctx, &audit.Entry{ID: "e1", OrgID: "org-1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Timesheets().Find(ctx, "ts-1")
	require.ErrorIs(t, err, workforce.ErrNotFound)
	_, total, err := s.Audit().List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestTxAppliesAtomically(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx workforce.Tx) error {
		if err := tx.Timesheets().Create(ctx, newTimesheet("ts-1")); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &audit.Entry{ID: "e1", OrgID: "org-1", CreatedAt: time.Now()})
	})
	require.NoError(t, err)

	ts, err := s.Timesheets().Find(ctx, "ts-1")
	require.NoError(t, err)
	require.Equal(t, workforce.TimesheetDraft, ts.Status)
	_, total, err := s.Audit().List(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestUpdateChecksExpectedStatus(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Timesheets().Create(ctx, newTimesheet("ts-1")))

	ts, err := s.Timesheets().Find(ctx, "ts-1")
	require.NoError(t, err)
	ts.Status = workforce.TimesheetSubmitted
	require.NoError(t, s.Timesheets().Update(ctx, ts, workforce.TimesheetDraft))

	// A second writer that loaded the draft loses.
	stale := newTimesheet("ts-1")
	stale.Status = workforce.TimesheetSubmitted
	err = s.Timesheets().Update(ctx, stale, workforce.TimesheetDraft)
	require.ErrorIs(t, err, workforce.ErrConflict)

	err = s.Timesheets().Update(ctx, stale, "")
	require.ErrorIs(t, err, workforce.ErrConflict)

	missing := newTimesheet("ts-404")
	err = s.Timesheets().Update(ctx, missing, workforce.TimesheetDraft)
	require.ErrorIs(t, err, workforce.ErrNotFound)
}

func TestStaleTxCommitConflicts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Timesheets().Create(ctx, newTimesheet("ts-1")))

	// Both transactions load the draft before either commits.
	first := func(tx workforce.Tx) error {
		ts, err := tx.Timesheets().Find(ctx, "ts-1")
		if err != nil {
			return err
		}
		ts.Status = workforce.TimesheetSubmitted
		return tx.Timesheets().Update(ctx, ts, workforce.TimesheetDraft)
	}
	require.NoError(t, s.InTx(ctx, first))
	err := s.InTx(ctx, first)
	require.ErrorIs(t, err, workforce.ErrConflict)
}

func TestFindReturnsCopies(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	ts := newTimesheet("ts-1")
	ts.Entries = []workforce.TimesheetEntry{{CostCode: "CC-1", Hours: 8}}
	require.NoError(t, s.Timesheets().Create(ctx, ts))

	got, err := s.Timesheets().Find(ctx, "ts-1")
	require.NoError(t, err)
	got.Entries[0].CostCode = "mutated"
	got.Status = workforce.TimesheetApproved

	again, err := s.Timesheets().Find(ctx, "ts-1")
	require.NoError(t, err)
	require.Equal(t, "CC-1", again.Entries[0].CostCode)
	require.Equal(t, workforce.TimesheetDraft, again.Status)
}

func TestListFilterAndPaging(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ts := newTimesheet(string(rune('a' + i)))
		ts.WorkDate = ts.WorkDate.AddDate(0, 0, i)
		ts.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Timesheets().Create(ctx, ts))
	}

	items, total, err := s.Timesheets().List(ctx, workforce.TimesheetFilter{OrgID: "org-1", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, items, 2)
	// Newest first.
	require.True(t, items[0].CreatedAt.After(items[1].CreatedAt))

	items, _, err = s.Timesheets().List(ctx, workforce.TimesheetFilter{OrgID: "org-1", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, total, err = s.Timesheets().List(ctx, workforce.TimesheetFilter{OrgID: "org-other", Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)
}

func TestAuditListNewestFirst(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Audit().Append(ctx, &audit.Entry{
			ID:        string(rune('a' + i)),
			OrgID:     "org-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, total, err := s.Audit().List(ctx, audit.Filter{OrgID: "org-1", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "c", entries[0].ID)
	require.Equal(t, "a", entries[2].ID)
}
