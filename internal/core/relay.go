package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Relay persists a new message and fans it out to the room's live clients.
// The durable append always comes first: a message the store rejected is
// never seen by any socket.
type Relay struct {
	store    store.Store
	registry *Registry
	subs     *Subscriptions
	log      *zerolog.Logger
}

// NewRelay wires the relay to its store, registry, and subscription table.
func NewRelay(st store.Store, registry *Registry, subs *Subscriptions, logger *zerolog.Logger) *Relay {
	return &Relay{store: st, registry: registry, subs: subs, log: logger}
}

// Publish appends the message to the room's log and broadcasts it. The room
// is ensured first so a publish can never append into a collection that was
// never created. The timestamp is generated once; persisted and broadcast
// values are identical. Broadcast is best-effort to whoever is subscribed
// at that moment.
func (r *Relay) Publish(ctx context.Context, room, userName, text string) (json.RawMessage, error) {
	if err := r.registry.EnsureRoomExists(ctx, room); err != nil {
		return nil, err
	}

	msg := store.Message{
		UserName:  userName,
		Text:      text,
		Timestamp: store.NewTimestamp(),
	}

	receipt, err := r.store.Append(ctx, room, msg)
	if err != nil {
		return nil, fmt.Errorf("append to %q: %w", room, err)
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	delivered := r.subs.Broadcast(room, frame)
	r.log.Debug().
		Str("room", room).
		Str("user", userName).
		Int("delivered", delivered).
		Msg("message published")

	return receipt, nil
}
