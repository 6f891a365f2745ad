package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"minerva-scheduler/internal/models"
	"minerva-scheduler/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

const appointmentColumns = `app_id, doctor_id, patient_id,
	to_char(app_date, 'YYYY-MM-DD'),
	to_char(t_start, 'HH24:MI'),
	to_char(t_stop, 'HH24:MI'),
	title, notes, status`

func scanAppointment(row interface{ Scan(...any) error }) (models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Title,
		&a.Notes,
		&a.Status,
	)
	return a, err
}

// ListAppointments returns every appointment visible to the user, as doctor or
// patient, ordered by date then start time. The stable order is what makes
// cover lookups deterministic downstream.
func (s *Storage) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	const op = "storage.postgres.ListAppointments"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id=$1 OR patient_id=$1
		ORDER BY app_date, t_start, app_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var appts []models.Appointment

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		appts = append(appts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

// ListActiveOnDate returns the user's active appointments on one date, for the
// overlap check before a create.
func (s *Storage) ListActiveOnDate(ctx context.Context, userID, date string) ([]models.Appointment, error) {
	const op = "storage.postgres.ListActiveOnDate"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+appointmentColumns+`
		FROM appointments
		WHERE (doctor_id=$1 OR patient_id=$1)
		AND app_date=$2
		AND status NOT IN ('canceled', 'completed')
		ORDER BY t_start, app_id`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var appts []models.Appointment

	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		appts = append(appts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

func (s *Storage) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointment"

	a, err := scanAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE app_id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &a, nil
}

// CreateAppointment inserts a fully-populated appointment. An exclusion or
// uniqueness violation on the slot interval maps to ErrConflict; the local
// legality check is advisory, this is the store-side guarantee.
func (s *Storage) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	const op = "storage.postgres.CreateAppointment"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments
		(app_id, doctor_id, patient_id, app_date, t_start, t_stop, title, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID,
		a.DoctorID,
		a.PatientID,
		a.Date,
		a.StartTime,
		a.EndTime,
		a.Title,
		a.Notes,
		string(a.Status),
	)
	if err != nil {
		sqlErr, ok := err.(*pq.Error)
		if ok && (sqlErr.Code == "23505" || sqlErr.Code == "23P01") {
			return fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		if ok && sqlErr.Code == "23503" {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConfirmAppointment moves a pending appointment to confirmed. Confirming an
// id that is absent or not pending is ErrNotFound.
func (s *Storage) ConfirmAppointment(ctx context.Context, id string) error {
	const op = "storage.postgres.ConfirmAppointment"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET status='confirmed'
		WHERE app_id=$1 AND status='pending'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// CancelAppointment marks an active appointment canceled. Canceling an id that
// is absent or already inactive is ErrNotFound, never a silent success.
func (s *Storage) CancelAppointment(ctx context.Context, id string) error {
	const op = "storage.postgres.CancelAppointment"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET status='canceled'
		WHERE app_id=$1 AND status NOT IN ('canceled', 'completed')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// UpdateAppointmentNotes persists new notes on an active appointment.
func (s *Storage) UpdateAppointmentNotes(ctx context.Context, id, notes string) error {
	const op = "storage.postgres.UpdateAppointmentNotes"

	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET notes=$1
		WHERE app_id=$2 AND status NOT IN ('canceled', 'completed')`,
		notes, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
