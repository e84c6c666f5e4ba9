package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Registry guarantees a room's backing collection exists before anything is
// read from or appended to it. It keeps no in-process state; the store's
// metadata is the only source of truth.
type Registry struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRegistry builds a registry over the given store.
func NewRegistry(st store.Store, logger *zerolog.Logger) *Registry {
	return &Registry{store: st, log: logger}
}

// EnsureRoomExists creates the room's collection if it is absent. Only a 404
// from the existence check means "absent"; any other failure propagates,
// because treating a network or auth error as a missing room would shadow
// real outages. Idempotent: a second call observes the collection and does
// nothing.
func (r *Registry) EnsureRoomExists(ctx context.Context, name string) error {
	if !store.ValidRoomName(name) {
		return fmt.Errorf("invalid room name %q", name)
	}

	err := r.store.DescribeCollection(ctx, name)
	if err == nil {
		r.log.Debug().Str("room", name).Msg("room already exists")
		return nil
	}
	if !store.IsNotFound(err) {
		return fmt.Errorf("check room %q: %w", name, err)
	}

	r.log.Info().Str("room", name).Msg("creating room collection")
	if err := r.store.CreateCollection(ctx, name); err != nil {
		// A concurrent create can win the race; the room exists either way.
		if store.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("create room %q: %w", name, err)
	}
	return nil
}
