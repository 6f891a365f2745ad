package api

import (
	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/slotgrid"
)

type AppointmentResponse struct {
	ID        string `json:"app_id"`
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	StartTime string `json:"t_start"`
	EndTime   string `json:"t_stop"`
	Title     string `json:"name"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
}

func FromModel(a models.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Title:     a.Title,
		Notes:     a.Notes,
		Status:    string(a.Status),
	}
}

func FromModels(appts []models.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		result = append(result, FromModel(a))
	}
	return result
}

type AppointmentCreateRequest struct {
	Date           string `json:"date"`
	StartTime      string `json:"t_start"`
	EndTime        string `json:"t_stop"`
	CounterpartyID string `json:"counterparty_id"`
	Title          string `json:"name"`
	Notes          string `json:"notes"`
}

type NotesUpdateRequest struct {
	Notes string `json:"notes"`
}

type GridViewResponse struct {
	WeekIndex    int                   `json:"week_index"`
	Dates        []string              `json:"dates"`
	Mode         string                `json:"mode"`
	Cells        [][]slotgrid.Cell     `json:"cells"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type GridClickRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type GridClickResponse struct {
	Mode             string               `json:"mode"`
	Appointment      *AppointmentResponse `json:"appointment,omitempty"`
	AllowedDurations []int                `json:"allowed_durations,omitempty"`
	DefaultDuration  int                  `json:"default_duration,omitempty"`
}

type GridCreateRequest struct {
	Title    string `json:"name"`
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`
}

type GridCancelRequest struct {
	Confirm bool `json:"confirm"`
}

type GridNotesRequest struct {
	Notes string `json:"notes"`
}
