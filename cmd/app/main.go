package main

import (
	apptCancel "minerva-scheduler/internal/http-server/handlers/appointments/cancel"
	apptConfirm "minerva-scheduler/internal/http-server/handlers/appointments/confirm"
	apptCreate "minerva-scheduler/internal/http-server/handlers/appointments/create"
	apptList "minerva-scheduler/internal/http-server/handlers/appointments/list"
	apptNotes "minerva-scheduler/internal/http-server/handlers/appointments/notes"
	gridCancel "minerva-scheduler/internal/http-server/handlers/grid/cancel"
	gridClick "minerva-scheduler/internal/http-server/handlers/grid/click"
	gridClose "minerva-scheduler/internal/http-server/handlers/grid/close"
	gridCreate "minerva-scheduler/internal/http-server/handlers/grid/create"
	gridNotes "minerva-scheduler/internal/http-server/handlers/grid/notes"
	gridRefresh "minerva-scheduler/internal/http-server/handlers/grid/refresh"
	gridRelease "minerva-scheduler/internal/http-server/handlers/grid/release"
	gridView "minerva-scheduler/internal/http-server/handlers/grid/view"

	"minerva-scheduler/internal/auth"
	"minerva-scheduler/internal/config"
	"minerva-scheduler/internal/lock"
	"minerva-scheduler/internal/notify"
	"minerva-scheduler/internal/scheduler"
	svc "minerva-scheduler/internal/service"
	"minerva-scheduler/internal/slotgrid"
	"minerva-scheduler/internal/storage/postgres"
	slogpretty "minerva-scheduler/pkg/handlers/slogPretty"
	"minerva-scheduler/pkg/middleware/mwLogger"
	"minerva-scheduler/pkg/sl"

	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	window, err := slotgrid.NewWindow(cfg.Grid.DayStart, cfg.Grid.DayEnd, cfg.Grid.SlotMinutes)
	if err != nil {
		log.Error("Invalid grid window", sl.Err(err))
		os.Exit(1)
	}

	anchorMonth, err := time.Parse("2006-01", cfg.Grid.AnchorMonth)
	if err != nil {
		log.Error("Invalid anchor month", sl.Err(err))
		os.Exit(1)
	}

	gridCfg := slotgrid.Config{
		Window:        window,
		AnchorMonth:   anchorMonth,
		WeeksPerMonth: cfg.Grid.WeeksPerMonth,
		Durations:     cfg.Grid.Durations,
	}

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	channel, err := notify.NewRedisChannel(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init chat channel", sl.Err(err))
		os.Exit(1)
	}

	service := svc.NewService(storage, locker, window)

	views := scheduler.NewRegistry(log, service, channel, gridCfg)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(log, cfg.Auth.JWTSecret))

		// Appointments
		r.Get("/appointments", apptList.New(log, service))
		r.Post("/appointments", apptCreate.New(log, service))
		r.Post("/appointments/{id}/confirm", apptConfirm.New(log, service))
		r.Delete("/appointments/{id}", apptCancel.New(log, service))
		r.Patch("/appointments/{id}/notes", apptNotes.New(log, service))

		// Weekly grid
		r.Get("/grid", gridView.New(log, views))
		r.Post("/grid/refresh", gridRefresh.New(log, views))
		r.Post("/grid/click", gridClick.New(log, views))
		r.Post("/grid/create", gridCreate.New(log, views))
		r.Post("/grid/cancel", gridCancel.New(log, views))
		r.Post("/grid/notes", gridNotes.New(log, views))
		r.Post("/grid/close", gridClose.New(log, views))
		r.Delete("/grid", gridRelease.New(log, views))
	})

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if storage != nil {
		if err := storage.Close(); err != nil {
			log.Error("Failed to close storage", sl.Err(err))
		} else {
			log.Info("Storage closed")
		}
	} else {
		log.Debug("Storage is nil, nothing to close")
	}

	if locker != nil {
		if err := locker.Close(); err != nil {
			log.Error("Failed to close locker", sl.Err(err))
		} else {
			log.Info("Locker closed")
		}
	}

	if channel != nil {
		if err := channel.Close(); err != nil {
			log.Error("Failed to close chat channel", sl.Err(err))
		} else {
			log.Info("Chat channel closed")
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
