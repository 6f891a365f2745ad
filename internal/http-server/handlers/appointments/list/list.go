package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"minerva-scheduler/api"
	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

type AppointmentLister interface {
	ListAppointments(ctx context.Context, user models.UserContext) ([]models.Appointment, error)
}

type Response struct {
	response.Response
	Appointments []api.AppointmentResponse `json:"appointments"`
}

func New(log *slog.Logger, lister AppointmentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "missing session"))
			return
		}

		appts, err := lister.ListAppointments(r.Context(), user)
		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list appointments"))
			return
		}

		log.Info("Appointments listed", slog.Int("count", len(appts)))

		render.JSON(w, r, Response{
			Appointments: api.FromModels(appts),
		})
	}
}
