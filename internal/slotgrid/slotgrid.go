package slotgrid

import (
	"fmt"
	"time"

	"minerva-scheduler/internal/models"
)

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Window is the daily operating range during which bookings are allowed.
type Window struct {
	DayStart    Clock
	DayEnd      Clock
	SlotMinutes int
}

func NewWindow(dayStart, dayEnd string, slotMinutes int) (Window, error) {
	const op = "slotgrid.NewWindow"

	start, err := ParseClock(dayStart)
	if err != nil {
		return Window{}, fmt.Errorf("%s: %w", op, err)
	}

	end, err := ParseClock(dayEnd)
	if err != nil {
		return Window{}, fmt.Errorf("%s: %w", op, err)
	}

	if slotMinutes <= 0 {
		return Window{}, fmt.Errorf("%s: slot length must be positive, got %d", op, slotMinutes)
	}
	if end <= start {
		return Window{}, fmt.Errorf("%s: day end %s is not after day start %s", op, end, start)
	}
	if int(end-start)%slotMinutes != 0 {
		return Window{}, fmt.Errorf("%s: window %s-%s is not a whole number of slots", op, start, end)
	}

	return Window{DayStart: start, DayEnd: end, SlotMinutes: slotMinutes}, nil
}

// Slots returns the fixed ticks of the grid, from day start inclusive to day
// end exclusive.
func (w Window) Slots() []Clock {
	slots := make([]Clock, 0, w.SlotCount())
	for c := w.DayStart; c < w.DayEnd; c = c.Add(w.SlotMinutes) {
		slots = append(slots, c)
	}
	return slots
}

func (w Window) SlotCount() int {
	return int(w.DayEnd-w.DayStart) / w.SlotMinutes
}

// interval parses the appointment's half-open [start, end) interval.
func interval(a models.Appointment) (Clock, Clock, error) {
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Covering returns every active appointment on date whose interval contains t,
// in the stable order of the input list. Entries with malformed times are
// skipped. Under the non-overlap invariant the result has at most one element;
// more than one means the invariant was violated by a concurrent writer.
func Covering(appts []models.Appointment, date string, t Clock) []models.Appointment {
	var covering []models.Appointment
	for _, a := range appts {
		if a.Date != date || !a.Status.Active() {
			continue
		}
		start, end, err := interval(a)
		if err != nil {
			continue
		}
		if start <= t && t < end {
			covering = append(covering, a)
		}
	}
	return covering
}

// FindCovering returns the first covering appointment in list order.
func FindCovering(appts []models.Appointment, date string, t Clock) (models.Appointment, bool) {
	covering := Covering(appts, date, t)
	if len(covering) == 0 {
		return models.Appointment{}, false
	}
	return covering[0], true
}

// IsBlockStart reports whether t is the first slot of the appointment's block.
func IsBlockStart(a models.Appointment, t Clock) bool {
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return false
	}
	return start == t
}

// BlockSpan returns the number of consecutive slots the appointment occupies.
// A duration that is not a positive multiple of the slot length is malformed.
func BlockSpan(a models.Appointment, slotMinutes int) (int, error) {
	const op = "slotgrid.BlockSpan"

	start, end, err := interval(a)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	dur := int(end - start)
	if dur <= 0 {
		return 0, fmt.Errorf("%s: appointment %s has non-positive duration %s-%s", op, a.ID, a.StartTime, a.EndTime)
	}
	if dur%slotMinutes != 0 {
		return 0, fmt.Errorf("%s: appointment %s duration %dm is not a multiple of %dm", op, a.ID, dur, slotMinutes)
	}

	return dur / slotMinutes, nil
}

// Overlaps reports whether the half-open [start, end) interval intersects any
// active appointment on date. Touching intervals do not overlap.
func Overlaps(appts []models.Appointment, date string, start, end Clock) bool {
	for _, a := range appts {
		if a.Date != date || !a.Status.Active() {
			continue
		}
		aStart, aEnd, err := interval(a)
		if err != nil {
			continue
		}
		if start < aEnd && aStart < end {
			return true
		}
	}
	return false
}

// LegalDurations filters the candidate durations (minutes) that fit at start
// on date: the booking must not run past the window end and must not overlap
// any active appointment. Input order is preserved. An empty result means no
// booking can start at this slot.
func LegalDurations(appts []models.Appointment, date string, start Clock, candidates []int, w Window) []int {
	var legal []int
	for _, d := range candidates {
		if d <= 0 || d%w.SlotMinutes != 0 {
			continue
		}
		end := start.Add(d)
		if end > w.DayEnd {
			continue
		}
		if Overlaps(appts, date, start, end) {
			continue
		}
		legal = append(legal, d)
	}
	return legal
}

// ClampSlots converts a requested duration into a slot count, clamped to the
// slots remaining in the day. This is the lenient submit-time check; the
// stricter pre-check is LegalDurations.
func ClampSlots(start Clock, durationMinutes int, w Window) int {
	requested := durationMinutes / w.SlotMinutes
	remaining := int(w.DayEnd-start) / w.SlotMinutes
	if requested > remaining {
		return remaining
	}
	return requested
}
