package confirm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"minerva-scheduler/api"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

type AppointmentConfirmer interface {
	ConfirmAppointment(ctx context.Context, id string) (models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, confirmer AppointmentConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.confirm.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		confirmed, err := confirmer.ConfirmAppointment(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found or not pending")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found or not pending"))
			return
		}

		if err != nil {
			log.Error("Failed to confirm appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to confirm appointment"))
			return
		}

		log.Info("Appointment confirmed", slog.String("app_id", id))

		render.JSON(w, r, Response{
			Appointment: api.FromModel(confirmed),
		})
	}
}
