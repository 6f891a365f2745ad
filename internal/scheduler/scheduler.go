package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/notify"
	"minerva-scheduler/internal/slotgrid"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

// Mode is the controller's single interaction state. The two modal flows are
// mutually exclusive: clicking a slot always resolves to exactly one of them.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// Store is the appointment backend the controller drives. It is satisfied by
// service.Service.
type Store interface {
	ListAppointments(ctx context.Context, user models.UserContext) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, user models.UserContext, appt models.Appointment) (models.Appointment, error)
	CancelAppointment(ctx context.Context, id string) (models.Appointment, error)
	UpdateAppointmentNotes(ctx context.Context, id, notes string) (models.Appointment, error)
}

// Draft holds the pending booking while the create modal is open.
type Draft struct {
	Date             string
	Time             string
	AllowedDurations []int
	Duration         int
}

// Controller is one user's live view of the weekly appointment grid. It keeps
// a single in-memory cache of the user's appointments, the current week index
// and the modal state, and mediates every mutation through the store so cache
// and store never diverge. All methods are safe for concurrent use.
type Controller struct {
	log     *slog.Logger
	store   Store
	channel notify.Channel

	user           models.UserContext
	counterpartyID string
	channelRef     string
	grid           slotgrid.Config

	mu            sync.Mutex
	appointments  []models.Appointment
	weekIndex     int
	mode          Mode
	selectedID    string
	draft         Draft
	confirmCancel bool
}

// New builds an unloaded controller. channel may be nil when the user has no
// chat relay; notifications are then skipped.
func New(log *slog.Logger, store Store, channel notify.Channel, user models.UserContext, counterpartyID, channelRef string, grid slotgrid.Config) *Controller {
	return &Controller{
		log:            log,
		store:          store,
		channel:        channel,
		user:           user,
		counterpartyID: counterpartyID,
		channelRef:     channelRef,
		grid:           grid,
		mode:           ModeIdle,
	}
}

// Load replaces the cache with the user's active appointments from the store.
func (c *Controller) Load(ctx context.Context) error {
	const op = "scheduler.Load"

	appts, err := c.store.ListAppointments(ctx, c.user)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	active := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Status.Active() {
			active = append(active, a)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.appointments = active

	return nil
}

// Refresh re-reads the store without touching the modal state, so a reload
// mid-edit does not drop the user's modal.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// SetWeek moves the view to weekIndex, clamped to the configured range.
func (c *Controller) SetWeek(weekIndex int) {
	if weekIndex < 0 {
		weekIndex = 0
	}
	if weekIndex > c.grid.WeeksPerMonth-1 {
		weekIndex = c.grid.WeeksPerMonth - 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.weekIndex = weekIndex
}

func (c *Controller) WeekIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weekIndex
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mode
}

// ClickSlot resolves a grid click: an occupied slot opens the editing modal on
// the covering appointment, a free slot opens the create modal with the
// durations that legally fit there. The previous modal state is always
// discarded first.
func (c *Controller) ClickSlot(ctx context.Context, date, clock string) error {
	const op = "scheduler.ClickSlot"

	t, err := slotgrid.ParseClock(clock)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, response.ErrValidation, err)
	}
	if t < c.grid.Window.DayStart || t >= c.grid.Window.DayEnd {
		return fmt.Errorf("%s: slot outside operating window: %w", op, response.ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%s: invalid date: %w", op, response.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeModalLocked()

	covering := slotgrid.Covering(c.appointments, date, t)
	if len(covering) > 0 {
		if len(covering) > 1 {
			c.log.Warn("slot covered by more than one appointment",
				slog.String("date", date),
				slog.String("time", clock),
				slog.Int("count", len(covering)),
			)
		}

		c.mode = ModeEditing
		c.selectedID = covering[0].ID

		return nil
	}

	legal := slotgrid.LegalDurations(c.appointments, date, t, c.grid.Durations, c.grid.Window)

	def := c.grid.Window.SlotMinutes
	if len(legal) > 0 {
		def = legal[0]
	}

	c.mode = ModeCreating
	c.draft = Draft{
		Date:             date,
		Time:             clock,
		AllowedDurations: legal,
		Duration:         def,
	}

	return nil
}

// SubmitCreate books the drafted slot. Duration is taken from the request if
// positive, otherwise the draft default, and is clamped to the slots left in
// the day rather than rejected. An empty title fails locally without reaching
// the store. On success the appointment is appended to the cache, the
// counterparty is notified best-effort and the modal closes.
func (c *Controller) SubmitCreate(ctx context.Context, title string, durationMinutes int, notes string) (models.Appointment, error) {
	const op = "scheduler.SubmitCreate"

	c.mu.Lock()

	if c.mode != ModeCreating {
		c.mu.Unlock()
		return models.Appointment{}, fmt.Errorf("%s: no booking in progress: %w", op, response.ErrBadRequest)
	}
	if title == "" {
		c.mu.Unlock()
		return models.Appointment{}, fmt.Errorf("%s: empty title: %w", op, response.ErrValidation)
	}

	draft := c.draft
	c.mu.Unlock()

	if durationMinutes <= 0 {
		durationMinutes = draft.Duration
	}

	start, err := slotgrid.ParseClock(draft.Time)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	slots := slotgrid.ClampSlots(start, durationMinutes, c.grid.Window)
	if slots <= 0 {
		return models.Appointment{}, fmt.Errorf("%s: no slots remain at %s: %w", op, draft.Time, response.ErrValidation)
	}
	end := start.Add(slots * c.grid.Window.SlotMinutes)

	appt := models.Appointment{
		Date:      draft.Date,
		StartTime: start.String(),
		EndTime:   end.String(),
		Title:     title,
		Notes:     notes,
	}
	c.user.AssignParties(&appt, c.counterpartyID)

	created, err := c.store.CreateAppointment(ctx, c.user, appt)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	c.appointments = append(c.appointments, created)
	c.closeModalLocked()
	c.mu.Unlock()

	c.notifyCounterparty(ctx, created)

	return created, nil
}

// notifyCounterparty posts the booking to the chat relay. Failures are logged
// and swallowed: the booking is already durable.
func (c *Controller) notifyCounterparty(ctx context.Context, a models.Appointment) {
	if c.channel == nil || c.channelRef == "" {
		return
	}

	msg := notify.Message{
		AppointmentID: a.ID,
		Label:         fmt.Sprintf("Confirm Appointment: %s at %s", a.Date, a.StartTime),
		Status:        "pending",
	}

	if err := c.channel.Post(ctx, c.channelRef, msg); err != nil {
		c.log.Error("failed to notify counterparty", sl.Err(err), slog.String("app_id", a.ID))
	}
}

// EnableCancel toggles the confirmation step inside the editing modal.
func (c *Controller) EnableCancel(confirm bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEditing {
		return
	}

	c.confirmCancel = confirm
}

// SubmitCancel cancels the selected appointment. It refuses unless the editing
// modal is open and the confirmation toggle was set. On success the entry is
// removed from the cache and the modal closes.
func (c *Controller) SubmitCancel(ctx context.Context) (models.Appointment, error) {
	const op = "scheduler.SubmitCancel"

	c.mu.Lock()

	if c.mode != ModeEditing || c.selectedID == "" {
		c.mu.Unlock()
		return models.Appointment{}, fmt.Errorf("%s: no appointment selected: %w", op, response.ErrBadRequest)
	}
	if !c.confirmCancel {
		c.mu.Unlock()
		return models.Appointment{}, fmt.Errorf("%s: cancellation not confirmed: %w", op, response.ErrBadRequest)
	}

	id := c.selectedID
	c.mu.Unlock()

	canceled, err := c.store.CancelAppointment(ctx, id)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	for i, a := range c.appointments {
		if a.ID == id {
			c.appointments = append(c.appointments[:i], c.appointments[i+1:]...)
			break
		}
	}
	c.closeModalLocked()
	c.mu.Unlock()

	return canceled, nil
}

// SaveNotes persists new notes on the selected appointment and patches the
// cache entry in place, so the grid and the modal read the same copy.
func (c *Controller) SaveNotes(ctx context.Context, notes string) (models.Appointment, error) {
	const op = "scheduler.SaveNotes"

	c.mu.Lock()

	if c.mode != ModeEditing || c.selectedID == "" {
		c.mu.Unlock()
		return models.Appointment{}, fmt.Errorf("%s: no appointment selected: %w", op, response.ErrBadRequest)
	}

	id := c.selectedID
	c.mu.Unlock()

	updated, err := c.store.UpdateAppointmentNotes(ctx, id, notes)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	for i := range c.appointments {
		if c.appointments[i].ID == id {
			c.appointments[i] = updated
			break
		}
	}
	c.mu.Unlock()

	return updated, nil
}

// CloseModal dismisses whichever modal is open and clears its state.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeModalLocked()
}

func (c *Controller) closeModalLocked() {
	c.mode = ModeIdle
	c.selectedID = ""
	c.draft = Draft{}
	c.confirmCancel = false
}

// Selected returns the currently selected appointment, looked up by id in the
// cache.
func (c *Controller) Selected() (models.Appointment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selectedID == "" {
		return models.Appointment{}, false
	}
	for _, a := range c.appointments {
		if a.ID == c.selectedID {
			return a, true
		}
	}
	return models.Appointment{}, false
}

// CurrentDraft returns a copy of the open create draft.
func (c *Controller) CurrentDraft() (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeCreating {
		return Draft{}, false
	}
	return c.draft, true
}

// WeekDates returns the five business days of the current week.
func (c *Controller) WeekDates() []time.Time {
	c.mu.Lock()
	weekIndex := c.weekIndex
	c.mu.Unlock()

	return slotgrid.WeekDates(c.grid.AnchorMonth, weekIndex)
}

// WeekAppointments returns the cached appointments falling in the current
// week, in cache order.
func (c *Controller) WeekAppointments() []models.Appointment {
	dates := c.WeekDates()

	inWeek := make(map[string]bool, len(dates))
	for _, d := range dates {
		inWeek[slotgrid.DateString(d)] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.Appointment
	for _, a := range c.appointments {
		if inWeek[a.Date] {
			out = append(out, a)
		}
	}
	return out
}

// Grid renders the current week as rows of cells, one row per slot tick.
func (c *Controller) Grid() [][]slotgrid.Cell {
	dates := c.WeekDates()

	c.mu.Lock()
	defer c.mu.Unlock()

	return slotgrid.BuildGrid(c.appointments, dates, c.grid.Window, c.selectedID)
}
