package cancel

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
	api.GridCancelRequest
}

type Response struct {
	response.Response
	Appointment api.AppointmentResponse `json:"appointment,omitempty"`
}

// New cancels the selected appointment. The request must carry the
// confirmation flag; a bare cancel is rejected.
func New(log *slog.Logger, views ViewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.cancel.New"

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

		ctrl.EnableCancel(req.Confirm)

		canceled, err := ctrl.SubmitCancel(r.Context())

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Cancellation rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "cancellation not confirmed"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if err != nil {
			log.Error("Failed to cancel appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to cancel appointment"))
			return
		}

		log.Info("Appointment cancelled", slog.String("app_id", canceled.ID))

		render.JSON(w, r, Response{
			Appointment: api.FromModel(canceled),
		})
	}
}
