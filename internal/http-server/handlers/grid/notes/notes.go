package notes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"minerva-scheduler/api"
	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/scheduler"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

type ViewProvider interface {
	Acquire(ctx context.Context, user models.UserContext, opts scheduler.ViewOptions) (*scheduler.Controller, error)
}

type Request struct {
	api.GridNotesRequest
}

type Response struct {
	response.Response
	Appointment api.AppointmentResponse `json:"appointment,omitempty"`
}

// New saves notes on the selected appointment.
func New(log *slog.Logger, views ViewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.notes.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		ctrl, err := views.Acquire(r.Context(), user, scheduler.ViewOptions{})
		if err != nil {
			log.Error("Failed to acquire grid view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load grid"))
			return
		}

		updated, err := ctrl.SaveNotes(r.Context(), req.Notes)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("No appointment selected")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "no appointment selected"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if err != nil {
			log.Error("Failed to save notes", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to save notes"))
			return
		}

		log.Info("Notes saved", slog.String("app_id", updated.ID))

		render.JSON(w, r, Response{
			Appointment: api.FromModel(updated),
		})
	}
}
