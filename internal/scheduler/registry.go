package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"minerva-scheduler/internal/models"
	"minerva-scheduler/internal/notify"
	"minerva-scheduler/internal/slotgrid"
)

// ViewOptions carries the per-session wiring a controller needs beyond the
// user identity.
type ViewOptions struct {
	CounterpartyID string
	ChannelRef     string
}

// Registry hands out one live Controller per user. The first Acquire for a
// user builds and loads the controller; later calls reuse it until Release.
type Registry struct {
	log     *slog.Logger
	store   Store
	channel notify.Channel
	grid    slotgrid.Config

	mu    sync.Mutex
	views map[string]*Controller
}

func NewRegistry(log *slog.Logger, store Store, channel notify.Channel, grid slotgrid.Config) *Registry {
	return &Registry{
		log:     log,
		store:   store,
		channel: channel,
		grid:    grid,
		views:   make(map[string]*Controller),
	}
}

// Acquire returns the user's controller, creating and loading it on first use.
func (r *Registry) Acquire(ctx context.Context, user models.UserContext, opts ViewOptions) (*Controller, error) {
	const op = "scheduler.Registry.Acquire"

	r.mu.Lock()
	ctrl, ok := r.views[user.UID]
	r.mu.Unlock()

	if ok {
		return ctrl, nil
	}

	ctrl = New(r.log, r.store, r.channel, user, opts.CounterpartyID, opts.ChannelRef, r.grid)

	if err := ctrl.Load(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// lost the race: keep the one that loaded first
	if existing, ok := r.views[user.UID]; ok {
		return existing, nil
	}

	r.views[user.UID] = ctrl

	return ctrl, nil
}

// Release drops the user's controller. The next Acquire reloads from the store.
func (r *Registry) Release(user models.UserContext) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.views, user.UID)
}
