package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store"
)

// ConnectAck is the plain-text frame sent to every socket right after the
// upgrade, so clients can detect a live connection before any history or
// chat frames arrive.
const ConnectAck = "Connected to server WebSocket"

// WSHandler runs the join handshake and the per-socket read/write loops.
type WSHandler struct {
	subs  *core.Subscriptions
	store store.Store
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(subs *core.Subscriptions, st store.Store, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{subs: subs, store: st, log: logger}
}

// Serve upgrades the connection and walks it through the join handshake:
// subscribe, acknowledge, deliver the history snapshot as one frame, then
// relay live frames until the socket goes away.
//
// Subscribing happens before the history read so a message published while
// the read is in flight is queued for this socket rather than lost. Queued
// frames only drain after the snapshot is written, which keeps history
// strictly ahead of any live delivery.
func (h *WSHandler) Serve(w stdhttp.ResponseWriter, r *stdhttp.Request, room string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(room)
	h.subs.Subscribe(client)
	defer h.subs.Unsubscribe(client)
	defer client.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.log.Info().Str("room", room).Str("client_id", client.ID).Msg("client joined")

	if err := conn.Write(ctx, websocket.MessageText, []byte(ConnectAck)); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write connect ack")
		return
	}

	h.sendHistory(ctx, conn, client)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Info().Str("room", room).Str("client_id", client.ID).Msg("client left")
	conn.Close(status, reason)
}

// sendHistory reads the room's full log and writes it as a single JSON
// array frame. The read path is best-effort: a failure is logged and the
// socket carries on live with no history, and an empty log produces no
// frame at all.
func (h *WSHandler) sendHistory(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	docs, err := h.store.ReadAll(ctx, client.Room)
	if err != nil {
		h.log.Warn().Err(err).Str("room", client.Room).Msg("history read failed")
		return
	}
	if len(docs) == 0 {
		return
	}

	frame, err := json.Marshal(docs)
	if err != nil {
		h.log.Error().Err(err).Str("room", client.Room).Msg("encode history")
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write history frame")
	}
}

// readLoop drains inbound frames. Clients submit messages over HTTP, not
// the socket, so inbound frames are logged and otherwise ignored; the loop
// exists to notice the peer going away.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		h.log.Debug().
			Str("client_id", client.ID).
			Str("data", string(data)).
			Msg("inbound ws frame ignored")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case frame := <-client.Frames():
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
