package workforce

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRangesOverlap(t *testing.T) {
	jan1 := date(2026, 1, 1)
	jan10 := date(2026, 1, 10)
	jan20 := date(2026, 1, 20)
	feb1 := date(2026, 2, 1)

	cases := []struct {
		name   string
		aStart time.Time
		aEnd   *time.Time
		bStart time.Time
		bEnd   *time.Time
		want   bool
	}{
		{"disjoint", jan1, &jan10, jan20, &feb1, false},
		{"contained", jan1, &feb1, jan10, &jan20, true},
		{"partial", jan1, &jan20, jan10, &feb1, true},
		{"shared boundary is exclusive", jan1, &jan10, jan10, &jan20, false},
		{"both open ended", jan1, nil, feb1, nil, true},
		{"open ended catches later range", jan1, nil, jan20, &feb1, true},
		{"closed range before open start", jan1, &jan10, jan10, nil, false},
		{"identical", jan1, &jan10, jan1, &jan10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RangesOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("RangesOverlap = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric.
			if got := RangesOverlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("reversed RangesOverlap = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseStatusesRejectUnknown(t *testing.T) {
	if _, err := ParseTimesheetStatus("pending"); err == nil {
		t.Fatal("expected error for unknown timesheet status")
	}
	if _, err := ParseCrewSwapStatus("open"); err == nil {
		t.Fatal("expected error for unknown crew swap status")
	}
	if _, err := ParseCrewAssignmentStatus("archived"); err == nil {
		t.Fatal("expected error for unknown assignment status")
	}
	s, err := ParseTimesheetStatus(" approved ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s != TimesheetApproved {
		t.Fatalf("got %s", s)
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2026, 3, 2, 1, 30, 0, 0, loc) // 2026-03-01T20:30Z
	got := DateOnly(in)
	want := date(2026, 3, 1)
	if !got.Equal(want) {
		t.Fatalf("DateOnly = %v, want %v", got, want)
	}
}
