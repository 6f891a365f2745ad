package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"minerva-scheduler/internal/lock"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/slotgrid"
	"minerva-scheduler/pkg/response"
)

// Service is the appointment store: validation, slot-conflict detection and
// persistence behind a narrow interface. The weekly-grid controller and the
// REST handlers both sit on top of it.
type Service struct {
	store  Store
	locker lock.Locker
	window slotgrid.Window
}

func NewService(store Store, locker lock.Locker, window slotgrid.Window) *Service {
	return &Service{store: store, locker: locker, window: window}
}

type Store interface {
	ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	ListActiveOnDate(ctx context.Context, userID, date string) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	ConfirmAppointment(ctx context.Context, id string) error
	CancelAppointment(ctx context.Context, id string) error
	UpdateAppointmentNotes(ctx context.Context, id, notes string) error
}

func (s *Service) ListAppointments(ctx context.Context, user models.UserContext) ([]models.Appointment, error) {
	const op = "service.ListAppointments"

	appts, err := s.store.ListAppointments(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

// CreateAppointment validates the interval, takes a short lock on the slot key
// and rejects any overlap with the user's active appointments on that date.
// Doctor and patient ids must already be assigned on the input.
func (s *Service) CreateAppointment(ctx context.Context, user models.UserContext, appt models.Appointment) (models.Appointment, error) {
	const op = "service.CreateAppointment"

	if appt.Title == "" {
		return models.Appointment{}, fmt.Errorf("%s: empty title: %w", op, response.ErrValidation)
	}
	if appt.DoctorID != user.UID && appt.PatientID != user.UID {
		return models.Appointment{}, fmt.Errorf("%s: user is not a party: %w", op, response.ErrValidation)
	}

	if _, err := time.Parse("2006-01-02", appt.Date); err != nil {
		return models.Appointment{}, fmt.Errorf("%s: invalid date: %w", op, response.ErrValidation)
	}

	start, err := slotgrid.ParseClock(appt.StartTime)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: invalid start time: %w", op, response.ErrValidation)
	}

	end, err := slotgrid.ParseClock(appt.EndTime)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: invalid end time: %w", op, response.ErrValidation)
	}

	if end <= start {
		return models.Appointment{}, fmt.Errorf("%s: end is not after start: %w", op, response.ErrValidation)
	}
	if start < s.window.DayStart || end > s.window.DayEnd {
		return models.Appointment{}, fmt.Errorf("%s: interval outside operating window: %w", op, response.ErrValidation)
	}
	if int(start-s.window.DayStart)%s.window.SlotMinutes != 0 || int(end-start)%s.window.SlotMinutes != 0 {
		return models.Appointment{}, fmt.Errorf("%s: interval not aligned to slot grid: %w", op, response.ErrValidation)
	}

	lockKey := fmt.Sprintf("slot:%s:%s:%s", user.UID, appt.Date, appt.StartTime)

	locked, err := s.locker.Lock(ctx, lockKey, 10*time.Second)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	sameDay, err := s.store.ListActiveOnDate(ctx, user.UID, appt.Date)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}
	if slotgrid.Overlaps(sameDay, appt.Date, start, end) {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	appt.ID = uuid.NewString()
	appt.Status = models.AppointmentPending

	if err := s.store.CreateAppointment(ctx, &appt); err != nil {
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (models.Appointment, error) {
	const op = "service.GetAppointment"

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	return *appt, nil
}

// ConfirmAppointment moves a pending appointment to confirmed, the
// counterparty's answer to the chat notification.
func (s *Service) ConfirmAppointment(ctx context.Context, id string) (models.Appointment, error) {
	const op = "service.ConfirmAppointment"

	if err := s.store.ConfirmAppointment(ctx, id); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetAppointment(ctx, id)
}

// CancelAppointment soft-removes an active appointment. A second cancel of the
// same id reports ErrNotFound.
func (s *Service) CancelAppointment(ctx context.Context, id string) (models.Appointment, error) {
	const op = "service.CancelAppointment"

	if err := s.store.CancelAppointment(ctx, id); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetAppointment(ctx, id)
}

func (s *Service) UpdateAppointmentNotes(ctx context.Context, id, notes string) (models.Appointment, error) {
	const op = "service.UpdateAppointmentNotes"

	if err := s.store.UpdateAppointmentNotes(ctx, id, notes); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return models.Appointment{}, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return models.Appointment{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetAppointment(ctx, id)
}
