package close

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/scheduler"
	"minerva-scheduler/pkg/response"
	"minerva-scheduler/pkg/sl"
)

type ViewProvider interface {
	Acquire(ctx context.Context, user models.UserContext, opts scheduler.ViewOptions) (*scheduler.Controller, error)
}

// New dismisses whichever modal is open.
func New(log *slog.Logger, views ViewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.close.New"

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

		ctrl, err := views.Acquire(r.Context(), user, scheduler.ViewOptions{})
		if err != nil {
			log.Error("Failed to acquire grid view", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to load grid"))
			return
		}

		ctrl.CloseModal()

		render.JSON(w, r, response.Response{})
	}
}
