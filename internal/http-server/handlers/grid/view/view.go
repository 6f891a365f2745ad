package view

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"minerva-scheduler/api"
	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/scheduler"
	"minerva-scheduler/internal/slotgrid"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

type ViewProvider interface {
	Acquire(ctx context.Context, user models.UserContext, opts scheduler.ViewOptions) (*scheduler.Controller, error)
}

type Response struct {
	response.Response
	api.GridViewResponse
}

// New renders the weekly grid for the authenticated user. An optional "week"
// query parameter moves the view before rendering.
func New(log *slog.Logger, views ViewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.view.New"

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

		ctrl, err := views.Acquire(r.Context(), user, scheduler.ViewOptions{
			CounterpartyID: r.URL.Query().Get("counterparty_id"),
			ChannelRef:     r.URL.Query().Get("channel_ref"),
		})
		if err != nil {
			log.Error("Failed to acquire grid view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load grid"))
			return
		}

		if weekParam := r.URL.Query().Get("week"); weekParam != "" {
			week, err := strconv.Atoi(weekParam)
			if err != nil {
				log.Error("week is not a number", slog.String("week", weekParam))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "week must be a number"))
				return
			}
			ctrl.SetWeek(week)
		}

		dates := ctrl.WeekDates()
		dateStrs := make([]string, 0, len(dates))
		for _, d := range dates {
			dateStrs = append(dateStrs, slotgrid.DateString(d))
		}

		render.JSON(w, r, Response{
			GridViewResponse: api.GridViewResponse{
				WeekIndex:    ctrl.WeekIndex(),
				Dates:        dateStrs,
				Mode:         string(ctrl.Mode()),
				Cells:        ctrl.Grid(),
				Appointments: api.FromModels(ctrl.WeekAppointments()),
			},
		})
	}
}
