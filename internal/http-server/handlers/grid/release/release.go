package release

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/models"
	"minerva-scheduler/pkg/response"
)

type ViewReleaser interface {
	Release(user models.UserContext)
}

// New drops the user's live grid view. The next grid request reloads from the
// store.
func New(log *slog.Logger, views ViewReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.grid.release.New"

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

		views.Release(user)

		log.Info("Grid view released", slog.String("uid", user.UID))

		render.JSON(w, r, response.Response{})
	}
}
