package workforce_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"crewplane.org/internal/workforce"
)

func TestLegalHoldBlocksArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ts := e.createTimesheet(t, foreman)

	// Only superadmin may place a hold.
	err := e.compliance.SetLegalHold(ctx, orgAdmin, "timesheet", ts.ID, true)
	require.ErrorIs(t, err, workforce.ErrForbidden)

	require.NoError(t, e.compliance.SetLegalHold(ctx, platform, "timesheet", ts.ID, true))

	// Admins cannot archive a held record, override or not.
	_, err = e.timesheets.Archive(ctx, orgAdmin, ts.ID, false)
	require.ErrorIs(t, err, workforce.ErrForbidden)
	_, err = e.timesheets.Archive(ctx, orgAdmin, ts.ID, true)
	require.ErrorIs(t, err, workforce.ErrForbidden)

	// Superadmin needs the explicit override.
	_, err = e.timesheets.Archive(ctx, platform, ts.ID, false)
	require.ErrorIs(t, err, workforce.ErrForbidden)
	archived, err := e.timesheets.Archive(ctx, platform, ts.ID, true)
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	// Non-destructive operations are unaffected by the hold.
	e2 := newEnv(t)
	ts2 := e2.createTimesheet(t, foreman)
	require.NoError(t, e2.compliance.SetLegalHold(ctx, platform, "timesheet", ts2.ID, true))
	_, err = e2.timesheets.Submit(ctx, foreman, ts2.ID)
	require.NoError(t, err)
}

func TestLegalHoldClear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ts := e.createTimesheet(t, foreman)

	require.NoError(t, e.compliance.SetLegalHold(ctx, platform, "timesheet", ts.ID, true))
	require.NoError(t, e.compliance.SetLegalHold(ctx, platform, "timesheet", ts.ID, false))

	// With the hold cleared, a plain admin archive succeeds again.
	_, err := e.timesheets.Archive(ctx, orgAdmin, ts.ID, false)
	require.NoError(t, err)

	trail := e.auditTrail(t, ts.ID)
	var actions []string
	for _, entry := range trail {
		actions = append(actions, entry.Action)
	}
	require.Contains(t, actions, "legal_hold_set")
	require.Contains(t, actions, "legal_hold_cleared")
}

func TestStripPII(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ts := e.createTimesheet(t, foreman)

	err := e.compliance.StripPII(ctx, orgAdmin, "timesheet", ts.ID, false)
	require.ErrorIs(t, err, workforce.ErrForbidden)

	require.NoError(t, e.compliance.StripPII(ctx, platform, "timesheet", ts.ID, false))

	got, err := e.timesheets.Get(ctx, platform, ts.ID, false)
	require.NoError(t, err)
	require.True(t, got.PiiStripped)
	require.Equal(t, "redacted", got.PersonID)
	require.Equal(t, "redacted", got.CreatedBy)
	for _, entry := range got.Entries {
		require.Empty(t, entry.Notes)
	}

	// Stripping is one-way and one-time.
	err = e.compliance.StripPII(ctx, platform, "timesheet", ts.ID, false)
	require.ErrorIs(t, err, workforce.ErrInvalidInput)
}

func TestStripPIIUnderLegalHold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	swap := e.createSwap(t)

	require.NoError(t, e.compliance.SetLegalHold(ctx, platform, "crew_swap", swap.ID, true))

	err := e.compliance.StripPII(ctx, platform, "crew_swap", swap.ID, false)
	require.ErrorIs(t, err, workforce.ErrForbidden)

	require.NoError(t, e.compliance.StripPII(ctx, platform, "crew_swap", swap.ID, true))
	got, err := e.swaps.Get(ctx, platform, swap.ID, false)
	require.NoError(t, err)
	require.True(t, got.PiiStripped)
	require.Equal(t, "redacted", got.PersonID)
}

func TestComplianceUnknownEntityType(t *testing.T) {
	e := newEnv(t)
	err := e.compliance.SetLegalHold(context.Background(), platform, "invoice", "some-id", true)
	require.ErrorIs(t, err, workforce.ErrInvalidInput)
}
