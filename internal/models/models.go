package models

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCanceled  AppointmentStatus = "canceled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Active reports whether the appointment still counts toward slot occupancy.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentCanceled && s != AppointmentCompleted
}

// Appointment is one booked interval on the weekly grid. Date is day-granular
// ("2006-01-02"), StartTime/EndTime are half-hour ticks ("15:04", 24h) with
// StartTime < EndTime, both inside the operating window.
type Appointment struct {
	ID        string            `db:"app_id"`
	DoctorID  string            `db:"doctor_id"`
	PatientID string            `db:"patient_id"`
	Date      string            `db:"app_date"`
	StartTime string            `db:"t_start"`
	EndTime   string            `db:"t_stop"`
	Title     string            `db:"title"`
	Notes     string            `db:"notes"`
	Status    AppointmentStatus `db:"status"`
}

type UserRole string

const (
	RolePatient UserRole = "reg"
	RoleDoctor  UserRole = "doc"
)

// UserContext is the opaque identity supplied by the session provider.
type UserContext struct {
	UID  string
	Role UserRole
}

// AssignParties fills the appointment's doctor/patient pair from the booking
// user and the counterparty on the other side of the chat channel.
func (u UserContext) AssignParties(a *Appointment, counterpartyID string) {
	if u.Role == RoleDoctor {
		a.DoctorID = u.UID
		a.PatientID = counterpartyID
	} else {
		a.PatientID = u.UID
		a.DoctorID = counterpartyID
	}
}
