package slotgrid

import (
	"reflect"
	"testing"
	"time"

	"minerva-scheduler/internal/models"
)

func testWindow(t *testing.T) Window {
	t.Helper()

	w, err := NewWindow("09:00", "17:00", 30)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	return w
}

func mustClock(t *testing.T, s string) Clock {
	t.Helper()

	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q): %v", s, err)
	}
	return c
}

func TestWindowSlots(t *testing.T) {
	w := testWindow(t)

	slots := w.Slots()
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0].String() != "09:00" {
		t.Fatalf("expected first slot 09:00, got %s", slots[0])
	}
	if slots[15].String() != "16:30" {
		t.Fatalf("expected last slot 16:30, got %s", slots[15])
	}
}

func TestWeekDates(t *testing.T) {
	// May 2025 starts on a Thursday; the Monday-aligned start is Apr 28.
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	week0 := WeekDates(anchor, 0)
	if len(week0) != 5 {
		t.Fatalf("expected 5 dates, got %d", len(week0))
	}
	if DateString(week0[0]) != "2025-04-28" {
		t.Fatalf("expected week 0 to start 2025-04-28, got %s", DateString(week0[0]))
	}
	if DateString(week0[4]) != "2025-05-02" {
		t.Fatalf("expected week 0 to end 2025-05-02, got %s", DateString(week0[4]))
	}

	week1 := WeekDates(anchor, 1)
	if DateString(week1[0]) != "2025-05-05" {
		t.Fatalf("expected week 1 to start 2025-05-05, got %s", DateString(week1[0]))
	}
	for _, d := range week1 {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			t.Fatalf("week contains weekend day %s", DateString(d))
		}
	}
}

func TestFindCovering(t *testing.T) {
	appts := []models.Appointment{
		{ID: "a1", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Title: "Consult", Status: models.AppointmentPending},
	}

	a, ok := FindCovering(appts, "2025-05-05", mustClock(t, "10:30"))
	if !ok {
		t.Fatalf("expected 10:30 to be covered")
	}
	if a.ID != "a1" {
		t.Fatalf("expected a1, got %s", a.ID)
	}
	if IsBlockStart(a, mustClock(t, "10:30")) {
		t.Fatalf("10:30 must not be the block start of a 10:00 appointment")
	}

	// half-open: the end boundary is free
	if _, ok := FindCovering(appts, "2025-05-05", mustClock(t, "11:00")); ok {
		t.Fatalf("11:00 must not be covered by a 10:00-11:00 appointment")
	}

	// other dates unaffected
	if _, ok := FindCovering(appts, "2025-05-06", mustClock(t, "10:30")); ok {
		t.Fatalf("unexpected cover on a different date")
	}
}

func TestFindCoveringIgnoresInactive(t *testing.T) {
	appts := []models.Appointment{
		{ID: "a1", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Status: models.AppointmentCanceled},
		{ID: "a2", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Status: models.AppointmentCompleted},
	}

	if _, ok := FindCovering(appts, "2025-05-05", mustClock(t, "10:00")); ok {
		t.Fatalf("canceled and completed appointments must not cover slots")
	}
}

func TestFindCoveringStableOrder(t *testing.T) {
	// Violated invariant: two active covers. First in list order wins.
	appts := []models.Appointment{
		{ID: "first", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Status: models.AppointmentPending},
		{ID: "second", Date: "2025-05-05", StartTime: "10:00", EndTime: "10:30", Status: models.AppointmentConfirmed},
	}

	covering := Covering(appts, "2025-05-05", mustClock(t, "10:00"))
	if len(covering) != 2 {
		t.Fatalf("expected 2 covers, got %d", len(covering))
	}

	a, _ := FindCovering(appts, "2025-05-05", mustClock(t, "10:00"))
	if a.ID != "first" {
		t.Fatalf("expected first-listed appointment, got %s", a.ID)
	}
}

func TestBlockSpan(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		span    int
		wantErr bool
	}{
		{name: "one slot", start: "10:00", end: "10:30", span: 1},
		{name: "two hours", start: "09:00", end: "11:00", span: 4},
		{name: "not a slot multiple", start: "10:00", end: "10:45", wantErr: true},
		{name: "zero length", start: "10:00", end: "10:00", wantErr: true},
		{name: "inverted", start: "11:00", end: "10:00", wantErr: true},
		{name: "garbage time", start: "abc", end: "10:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := models.Appointment{ID: "a1", StartTime: tt.start, EndTime: tt.end}
			span, err := BlockSpan(a, 30)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got span %d", span)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span != tt.span {
				t.Fatalf("expected span %d, got %d", tt.span, span)
			}
		})
	}
}

func TestLegalDurationsEmptyDay(t *testing.T) {
	w := testWindow(t)

	// 10:00 + 120m = 12:00, well inside the window: everything fits
	got := LegalDurations(nil, "2025-05-05", mustClock(t, "10:00"), []int{30, 60, 90, 120}, w)
	want := []int{30, 60, 90, 120}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLegalDurationsTouchingInterval(t *testing.T) {
	w := testWindow(t)
	appts := []models.Appointment{
		{ID: "a1", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Status: models.AppointmentPending},
	}

	// 09:00+60m ends exactly at the 10:00 start: half-open intervals touch
	// without conflicting, so 30 and 60 are legal, 90 and 120 are not.
	got := LegalDurations(appts, "2025-05-05", mustClock(t, "09:00"), []int{30, 60, 90, 120}, w)
	want := []int{30, 60}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLegalDurationsWindowEnd(t *testing.T) {
	w := testWindow(t)

	// last tick of the day: 30m reaches the boundary exactly and is legal,
	// 60m would run past 17:00
	got := LegalDurations(nil, "2025-05-05", mustClock(t, "16:30"), []int{30, 60, 90, 120}, w)
	want := []int{30}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLegalDurationsFullyBlocked(t *testing.T) {
	w := testWindow(t)
	appts := []models.Appointment{
		{ID: "a1", Date: "2025-05-05", StartTime: "10:30", EndTime: "11:00", Status: models.AppointmentConfirmed},
	}

	// 10:00 has room for exactly one slot before the conflict
	got := LegalDurations(appts, "2025-05-05", mustClock(t, "10:00"), []int{30, 60, 90, 120}, w)
	want := []int{30}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// inside the appointment everything conflicts
	got = LegalDurations(appts, "2025-05-05", mustClock(t, "10:30"), []int{30, 60, 90, 120}, w)
	if got != nil {
		t.Fatalf("expected no legal durations, got %v", got)
	}
}

func TestClampSlots(t *testing.T) {
	w := testWindow(t)

	if got := ClampSlots(mustClock(t, "16:30"), 120, w); got != 1 {
		t.Fatalf("expected clamp to 1 slot at 16:30, got %d", got)
	}
	if got := ClampSlots(mustClock(t, "10:00"), 120, w); got != 4 {
		t.Fatalf("expected 4 slots at 10:00, got %d", got)
	}
	if got := ClampSlots(mustClock(t, "15:00"), 120, w); got != 4 {
		t.Fatalf("15:00+120m reaches the boundary exactly, expected 4 slots, got %d", got)
	}
}

func TestBuildGridSuppression(t *testing.T) {
	w := testWindow(t)
	anchor := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	dates := WeekDates(anchor, 1) // 2025-05-05 .. 2025-05-09

	appts := []models.Appointment{
		{ID: "a1", Date: "2025-05-05", StartTime: "10:00", EndTime: "11:00", Title: "Consult", Status: models.AppointmentPending},
	}

	rows := BuildGrid(appts, dates, w, "a1")
	if len(rows) != 16 {
		t.Fatalf("expected 16 rows, got %d", len(rows))
	}

	// row 2 = 10:00, column 0 = Monday 2025-05-05
	start := rows[2][0]
	if start.AppointmentID != "a1" || start.Title != "Consult" {
		t.Fatalf("expected block start cell with title, got %+v", start)
	}
	if start.Span != 2 {
		t.Fatalf("expected span 2, got %d", start.Span)
	}
	if !start.Selected {
		t.Fatalf("expected selected block start")
	}

	// the 10:30 cell belongs to the block but is not rendered independently
	covered := rows[3][0]
	if !covered.Hidden || covered.Title != "" || covered.Span != 0 {
		t.Fatalf("expected hidden covered cell, got %+v", covered)
	}

	// a free cell carries no appointment
	free := rows[4][0]
	if free.AppointmentID != "" || free.Hidden {
		t.Fatalf("expected free cell at 11:00, got %+v", free)
	}
}
