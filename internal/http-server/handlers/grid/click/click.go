package click

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
	api.GridClickRequest
}

type Response struct {
	response.Response
	api.GridClickResponse
}

// New resolves a slot click into the next modal state: editing for an occupied
// slot, creating with the legal durations for a free one.
func New(log *slog.Logger, views ViewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.click.New"

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

		err = ctrl.ClickSlot(r.Context(), req.Date, req.Time)

		if errors.Is(err, response.ErrValidation) {
			log.Error("Invalid slot click", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.VALIDATION), "slot is invalid"))
			return
		}

		if err != nil {
			log.Error("Failed to resolve slot click", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to resolve slot click"))
			return
		}

		resp := api.GridClickResponse{Mode: string(ctrl.Mode())}

		if selected, ok := ctrl.Selected(); ok {
			appt := api.FromModel(selected)
			resp.Appointment = &appt
		}
		if draft, ok := ctrl.CurrentDraft(); ok {
			resp.AllowedDurations = draft.AllowedDurations
			resp.DefaultDuration = draft.Duration
		}

		log.Info("Slot click resolved", slog.String("mode", resp.Mode))

		render.JSON(w, r, Response{GridClickResponse: resp})
	}
}
