package settlement

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func TestWindowEnumeratesElapsedDaysOnly(t *testing.T) {
	// Settled through the 5th, today is the 10th: the 6th..9th are due,
	// today itself stays open.
	days := Window(day(2026, 3, 5), day(2026, 3, 10), testLoc, 30)
	if len(days) != 4 {
		t.Fatalf("window length: got %d, want 4", len(days))
	}
	if !days[0].Equal(day(2026, 3, 6)) || !days[3].Equal(day(2026, 3, 9)) {
		t.Errorf("window bounds: got %v..%v, want 2026-03-06..2026-03-09", days[0], days[3])
	}
}

func TestWindowZeroGap(t *testing.T) {
	// Settled through yesterday: nothing to do.
	if days := Window(day(2026, 3, 9), day(2026, 3, 10), testLoc, 30); len(days) != 0 {
		t.Errorf("settled-through-yesterday window: got %d days, want 0", len(days))
	}
	// Settled through today (should not happen, but must not look backwards).
	if days := Window(day(2026, 3, 10), day(2026, 3, 10), testLoc, 30); len(days) != 0 {
		t.Errorf("settled-through-today window: got %d days, want 0", len(days))
	}
}

// TestWindowBackfillCap: a driver with 400 days of history gets at most 30
// days per invocation; a second invocation continues where the first left off.
func TestWindowBackfillCap(t *testing.T) {
	today := day(2026, 3, 10)
	last := today.AddDate(0, 0, -400)

	first := Window(last, today, testLoc, 30)
	if len(first) != 30 {
		t.Fatalf("first invocation: got %d days, want 30", len(first))
	}
	if !first[0].Equal(last.AddDate(0, 0, 1)) {
		t.Errorf("first day: got %v, want %v", first[0], last.AddDate(0, 0, 1))
	}

	// The roller advances lastSettlementDate to the last enumerated day.
	second := Window(first[len(first)-1], today, testLoc, 30)
	if len(second) != 30 {
		t.Fatalf("second invocation: got %d days, want 30", len(second))
	}
	if !second[0].Equal(first[len(first)-1].AddDate(0, 0, 1)) {
		t.Errorf("second invocation does not continue from the first: got %v", second[0])
	}
}

func TestWindowMissingOrAncientDate(t *testing.T) {
	today := day(2026, 3, 10)

	// Zero value: bounded 30-day backfill, not unbounded replay.
	days := Window(time.Time{}, today, testLoc, 30)
	if len(days) != 29 {
		t.Fatalf("missing date window: got %d days, want 29", len(days))
	}
	if !days[0].Equal(today.AddDate(0, 0, -29)) {
		t.Errorf("missing date window start: got %v, want %v", days[0], today.AddDate(0, 0, -29))
	}

	// A date before the sanity floor behaves the same as a missing one.
	ancient := Window(day(2015, 1, 1), today, testLoc, 30)
	if len(ancient) != len(days) || !ancient[0].Equal(days[0]) {
		t.Errorf("ancient date window differs from missing-date window: %v vs %v", ancient, days)
	}
}

func TestWindowFutureDate(t *testing.T) {
	// A future lastSettlementDate is corrupt data; the roller must not
	// enumerate anything rather than walk backwards.
	if days := Window(day(2026, 4, 1), day(2026, 3, 10), testLoc, 30); len(days) != 0 {
		t.Errorf("future date window: got %d days, want 0", len(days))
	}
}

// TestWindowIdempotent: with no new activity, re-running the window after the
// roller advanced the date yields nothing more.
func TestWindowIdempotent(t *testing.T) {
	today := day(2026, 3, 10)
	first := Window(day(2026, 3, 5), today, testLoc, 30)
	advancedTo := first[len(first)-1]

	if again := Window(advancedTo, today, testLoc, 30); len(again) != 0 {
		t.Errorf("second run after full advancement: got %d days, want 0", len(again))
	}
}

func TestDayOfUsesBusinessTimezone(t *testing.T) {
	// 2026-03-10 23:30 UTC is already 2026-03-11 05:00 in Asia/Kolkata.
	utc := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	got := DayOf(utc, testLoc)
	if !got.Equal(day(2026, 3, 11)) {
		t.Errorf("DayOf: got %v, want 2026-03-11 in business zone", got)
	}
}
