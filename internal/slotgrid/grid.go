package slotgrid

import (
	"time"

	"minerva-scheduler/internal/models"
)

// Cell is one rendered grid position. A block (a run of slots covered by one
// appointment) is live only at its first slot: that cell carries the title and
// the row span, the remaining cells of the run are hidden.
type Cell struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	AppointmentID string `json:"app_id,omitempty"`
	Title         string `json:"name,omitempty"`
	Span          int    `json:"span,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
	Selected      bool   `json:"selected,omitempty"`
}

// BuildGrid projects the appointments onto the week grid: one row per slot
// tick, one cell per day. selectedID marks the block start of the currently
// selected appointment, if any.
func BuildGrid(appts []models.Appointment, dates []time.Time, w Window, selectedID string) [][]Cell {
	slots := w.Slots()

	rows := make([][]Cell, 0, len(slots))
	for _, slot := range slots {
		row := make([]Cell, 0, len(dates))
		for _, date := range dates {
			dateStr := DateString(date)
			cell := Cell{Date: dateStr, Time: slot.String()}

			if a, ok := FindCovering(appts, dateStr, slot); ok {
				if IsBlockStart(a, slot) {
					span, err := BlockSpan(a, w.SlotMinutes)
					if err != nil {
						span = 1
					}
					cell.AppointmentID = a.ID
					cell.Title = a.Title
					cell.Span = span
					cell.Selected = selectedID != "" && a.ID == selectedID
				} else {
					cell.AppointmentID = a.ID
					cell.Hidden = true
				}
			}

			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows
}
