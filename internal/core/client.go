package core

import (
	"sync"

	"github.com/google/uuid"
)

// frameBuffer sizes the per-client outbound queue. Frames broadcast while
// the client is still receiving its history snapshot wait here.
const frameBuffer = 64

// Client is one live socket subscribed to a room, as seen by the core. The
// transport layer owns the connection; the core only ever queues frames.
type Client struct {
	ID   string
	Room string

	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewClient constructs a client pinned to the given room for its lifetime.
func NewClient(room string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		Room:   room,
		frames: make(chan []byte, frameBuffer),
		done:   make(chan struct{}),
	}
}

// Frames is the outbound queue drained by the transport's write loop.
func (c *Client) Frames() <-chan []byte {
	return c.frames
}

// TrySend queues a frame without blocking. Closed clients and clients whose
// queue is full are skipped; the caller treats both as delivered-best-effort.
func (c *Client) TrySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.frames <- frame:
		return true
	default:
		return false
	}
}

// Close marks the client as gone. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed when the client's connection has gone away.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
