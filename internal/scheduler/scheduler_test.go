package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/notify"
	"minerva-scheduler/internal/slotgrid"
	"minerva-scheduler/pkg/response"
)

type fakeStore struct {
	appts      []models.Appointment
	nextID     int
	creates    int
	failCreate bool
}

func (f *fakeStore) ListAppointments(_ context.Context, user models.UserContext) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if a.DoctorID == user.UID || a.PatientID == user.UID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, _ models.UserContext, appt models.Appointment) (models.Appointment, error) {
	f.creates++
	if f.failCreate {
		return models.Appointment{}, fmt.Errorf("fakeStore: %w", response.ErrConflict)
	}
	f.nextID++
	appt.ID = fmt.Sprintf("app-%d", f.nextID)
	appt.Status = models.AppointmentPending
	f.appts = append(f.appts, appt)
	return appt, nil
}

func (f *fakeStore) CancelAppointment(_ context.Context, id string) (models.Appointment, error) {
	for i, a := range f.appts {
		if a.ID == id && a.Status.Active() {
			f.appts[i].Status = models.AppointmentCanceled
			return f.appts[i], nil
		}
	}
	return models.Appointment{}, response.ErrNotFound
}

func (f *fakeStore) UpdateAppointmentNotes(_ context.Context, id, notes string) (models.Appointment, error) {
	for i, a := range f.appts {
		if a.ID == id && a.Status.Active() {
			f.appts[i].Notes = notes
			return f.appts[i], nil
		}
	}
	return models.Appointment{}, response.ErrNotFound
}

type fakeChannel struct {
	posts []notify.Message
	fail  bool
}

func (f *fakeChannel) Post(_ context.Context, _ string, msg notify.Message) error {
	if f.fail {
		return fmt.Errorf("fakeChannel: relay down")
	}
	f.posts = append(f.posts, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

var testUser = models.UserContext{UID: "doc-1", Role: models.RoleDoctor}

func testGrid(t *testing.T) slotgrid.Config {
	t.Helper()

	window, err := slotgrid.NewWindow("09:00", "17:00", 30)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	anchor, err := time.Parse("2006-01", "2025-05")
	if err != nil {
		t.Fatalf("parse anchor: %v", err)
	}
	return slotgrid.Config{
		Window:        window,
		AnchorMonth:   anchor,
		WeeksPerMonth: 4,
		Durations:     []int{30, 60, 90, 120},
	}
}

func testController(t *testing.T, store *fakeStore, channel notify.Channel) *Controller {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := New(log, store, channel, testUser, "pat-1", "chan-1", testGrid(t))
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ctrl
}

func seeded(appts ...models.Appointment) *fakeStore {
	return &fakeStore{appts: appts, nextID: len(appts)}
}

func appt(id, date, start, end string) models.Appointment {
	return models.Appointment{
		ID:        id,
		DoctorID:  "doc-1",
		PatientID: "pat-1",
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Title:     "Checkup",
		Status:    models.AppointmentConfirmed,
	}
}

func TestLoadFiltersInactive(t *testing.T) {
	gone := appt("app-1", "2025-05-05", "10:00", "11:00")
	gone.Status = models.AppointmentCanceled
	store := seeded(gone, appt("app-2", "2025-05-05", "11:00", "12:00"))

	ctrl := testController(t, store, nil)

	if got := len(ctrl.WeekAppointments()); got != 0 {
		// week 0 starts Apr 28, the seeded dates are in week 1
		t.Fatalf("expected empty week 0, got %d", got)
	}

	ctrl.SetWeek(1)
	week := ctrl.WeekAppointments()
	if len(week) != 1 || week[0].ID != "app-2" {
		t.Fatalf("expected only the active appointment, got %+v", week)
	}
}

func TestSetWeekClamps(t *testing.T) {
	ctrl := testController(t, seeded(), nil)

	ctrl.SetWeek(-3)
	if got := ctrl.WeekIndex(); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}

	ctrl.SetWeek(99)
	if got := ctrl.WeekIndex(); got != 3 {
		t.Fatalf("expected clamp to 3, got %d", got)
	}
}

func TestClickFreeSlotOpensCreate(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "09:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	if ctrl.Mode() != ModeCreating {
		t.Fatalf("expected creating mode, got %s", ctrl.Mode())
	}

	draft, ok := ctrl.CurrentDraft()
	if !ok {
		t.Fatalf("expected open draft")
	}
	// 10:00 booking caps the fit at 09:00 to 30 and 60 minutes
	if !reflect.DeepEqual(draft.AllowedDurations, []int{30, 60}) {
		t.Fatalf("unexpected durations: %v", draft.AllowedDurations)
	}
	if draft.Duration != 30 {
		t.Fatalf("expected default 30, got %d", draft.Duration)
	}
}

func TestClickOccupiedSlotOpensEdit(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	// mid-block click selects the covering appointment, not just its start
	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:30"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	if ctrl.Mode() != ModeEditing {
		t.Fatalf("expected editing mode, got %s", ctrl.Mode())
	}

	sel, ok := ctrl.Selected()
	if !ok || sel.ID != "app-1" {
		t.Fatalf("expected app-1 selected, got %+v ok=%v", sel, ok)
	}
}

func TestClickReplacesOpenModal(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("first click: %v", err)
	}
	ctrl.EnableCancel(true)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "12:00"); err != nil {
		t.Fatalf("second click: %v", err)
	}

	if ctrl.Mode() != ModeCreating {
		t.Fatalf("expected creating mode after second click, got %s", ctrl.Mode())
	}
	if _, ok := ctrl.Selected(); ok {
		t.Fatalf("selection must be cleared by the second click")
	}

	// the confirm toggle must not leak into the next editing session
	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("third click: %v", err)
	}
	if _, err := ctrl.SubmitCancel(context.Background()); !errors.Is(err, response.ErrBadRequest) {
		t.Fatalf("expected unconfirmed cancel to fail, got %v", err)
	}
}

func TestSubmitCreate(t *testing.T) {
	store := seeded()
	channel := &fakeChannel{}
	ctrl := testController(t, store, channel)
	ctrl.SetWeek(1)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	created, err := ctrl.SubmitCreate(context.Background(), "Consult", 60, "first visit")
	if err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}

	if created.StartTime != "10:00" || created.EndTime != "11:00" {
		t.Fatalf("unexpected interval %s-%s", created.StartTime, created.EndTime)
	}
	if created.DoctorID != "doc-1" || created.PatientID != "pat-1" {
		t.Fatalf("parties not assigned: %+v", created)
	}

	if ctrl.Mode() != ModeIdle {
		t.Fatalf("expected idle after create, got %s", ctrl.Mode())
	}

	week := ctrl.WeekAppointments()
	if len(week) != 1 || week[0].ID != created.ID {
		t.Fatalf("cache not updated: %+v", week)
	}

	if len(channel.posts) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(channel.posts))
	}
	msg := channel.posts[0]
	if msg.Label != "Confirm Appointment: 2025-05-05 at 10:00" {
		t.Fatalf("unexpected label %q", msg.Label)
	}
	if msg.Status != "pending" || msg.AppointmentID != created.ID {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestSubmitCreateEmptyTitle(t *testing.T) {
	store := seeded()
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	if _, err := ctrl.SubmitCreate(context.Background(), "", 60, ""); !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if store.creates != 0 {
		t.Fatalf("store must not be called for an empty title")
	}
	if ctrl.Mode() != ModeCreating {
		t.Fatalf("modal must stay open for correction, got %s", ctrl.Mode())
	}
}

func TestSubmitCreateClampsDuration(t *testing.T) {
	store := seeded()
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "16:30"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	// 120 requested at the last slot of the day clamps to a single slot
	created, err := ctrl.SubmitCreate(context.Background(), "Late", 120, "")
	if err != nil {
		t.Fatalf("SubmitCreate: %v", err)
	}
	if created.EndTime != "17:00" {
		t.Fatalf("expected clamp to 17:00, got %s", created.EndTime)
	}
}

func TestSubmitCreateStoreFailure(t *testing.T) {
	store := seeded()
	store.failCreate = true
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	if _, err := ctrl.SubmitCreate(context.Background(), "Consult", 60, ""); !errors.Is(err, response.ErrConflict) {
		t.Fatalf("expected store error through, got %v", err)
	}

	ctrl.SetWeek(1)
	if got := len(ctrl.WeekAppointments()); got != 0 {
		t.Fatalf("cache must not grow on store failure, got %d", got)
	}
}

func TestSubmitCreateNilChannel(t *testing.T) {
	store := seeded()
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}
	if _, err := ctrl.SubmitCreate(context.Background(), "Consult", 30, ""); err != nil {
		t.Fatalf("create must succeed without a chat channel: %v", err)
	}
}

func TestSubmitCreateChannelFailure(t *testing.T) {
	store := seeded()
	channel := &fakeChannel{fail: true}
	ctrl := testController(t, store, channel)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}
	created, err := ctrl.SubmitCreate(context.Background(), "Consult", 30, "")
	if err != nil {
		t.Fatalf("create must survive a failed notification: %v", err)
	}

	ctrl.SetWeek(1)
	week := ctrl.WeekAppointments()
	if len(week) != 1 || week[0].ID != created.ID {
		t.Fatalf("booking must stay durable: %+v", week)
	}
}

func TestSubmitCancel(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	if _, err := ctrl.SubmitCancel(context.Background()); !errors.Is(err, response.ErrBadRequest) {
		t.Fatalf("cancel must require confirmation, got %v", err)
	}

	ctrl.EnableCancel(true)

	canceled, err := ctrl.SubmitCancel(context.Background())
	if err != nil {
		t.Fatalf("SubmitCancel: %v", err)
	}
	if canceled.Status != models.AppointmentCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}

	if ctrl.Mode() != ModeIdle {
		t.Fatalf("expected idle after cancel, got %s", ctrl.Mode())
	}
	if _, ok := ctrl.Selected(); ok {
		t.Fatalf("selection must be cleared")
	}

	ctrl.SetWeek(1)
	if got := len(ctrl.WeekAppointments()); got != 0 {
		t.Fatalf("canceled appointment must leave the cache, got %d", got)
	}
}

func TestSubmitCancelStoreFailure(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:00"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}
	ctrl.EnableCancel(true)

	// the store loses the row under us
	store.appts = nil

	if _, err := ctrl.SubmitCancel(context.Background()); !errors.Is(err, response.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ctrl.SetWeek(1)
	if got := len(ctrl.WeekAppointments()); got != 1 {
		t.Fatalf("cache must be untouched on store failure, got %d", got)
	}
}

func TestSaveNotesPatchesCache(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)

	if err := ctrl.ClickSlot(context.Background(), "2025-05-05", "10:30"); err != nil {
		t.Fatalf("ClickSlot: %v", err)
	}

	updated, err := ctrl.SaveNotes(context.Background(), "fasting required")
	if err != nil {
		t.Fatalf("SaveNotes: %v", err)
	}
	if updated.Notes != "fasting required" {
		t.Fatalf("unexpected notes %q", updated.Notes)
	}

	// the modal stays open and reads back the same patched copy
	sel, ok := ctrl.Selected()
	if !ok || sel.Notes != "fasting required" {
		t.Fatalf("cache entry not patched: %+v ok=%v", sel, ok)
	}
}

func TestGridRendersBlocks(t *testing.T) {
	store := seeded(appt("app-1", "2025-05-05", "10:00", "11:00"))
	ctrl := testController(t, store, nil)
	ctrl.SetWeek(1)

	rows := ctrl.Grid()
	if len(rows) != 16 {
		t.Fatalf("expected 16 slot rows, got %d", len(rows))
	}

	// 2025-05-05 is Monday of week 1, 10:00 is row 2
	startCell := rows[2][0]
	if startCell.AppointmentID != "app-1" || startCell.Span != 2 || startCell.Hidden {
		t.Fatalf("unexpected block start cell %+v", startCell)
	}
	coveredCell := rows[3][0]
	if !coveredCell.Hidden || coveredCell.AppointmentID != "app-1" {
		t.Fatalf("unexpected covered cell %+v", coveredCell)
	}
}

func TestRegistryReusesController(t *testing.T) {
	store := seeded()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := NewRegistry(log, store, nil, testGrid(t))

	opts := ViewOptions{CounterpartyID: "pat-1", ChannelRef: "chan-1"}

	a, err := reg.Acquire(context.Background(), testUser, opts)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	b, err := reg.Acquire(context.Background(), testUser, opts)
	if err != nil {
		t.Fatalf("Acquire again: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same controller instance")
	}

	reg.Release(testUser)

	c, err := reg.Acquire(context.Background(), testUser, opts)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if c == a {
		t.Fatalf("expected a fresh controller after release")
	}
}
