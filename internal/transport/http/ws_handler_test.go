package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/roomcast/roomcast-server/internal/store"
)

func dialRoom(t *testing.T, ctx context.Context, ts string, room string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts, "http", "ws", 1) + "/" + room
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readTextFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) []byte {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return data
}

func expectAck(t *testing.T, ctx context.Context, conn *websocket.Conn) {
	t.Helper()

	if got := string(readTextFrame(t, ctx, conn)); got != ConnectAck {
		t.Fatalf("expected connect ack, got %q", got)
	}
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	shortCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, data, err := conn.Read(shortCtx); err == nil {
		t.Fatalf("expected no frame, got %q", data)
	}
}

func postMessage(t *testing.T, ts, room, user, text string) *stdhttp.Response {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"userName": user,
		"message":  text,
		"roomName": room,
	})
	resp, err := stdhttp.Post(ts+"/send-message", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestJoinEmptyRoomSendsAckOnly(t *testing.T) {
	fs := newFakeStore()
	fs.seed("lobby")
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dialRoom(t, ctx, ts.URL, "lobby")
	b := dialRoom(t, ctx, ts.URL, "lobby")

	expectAck(t, ctx, a)
	expectAck(t, ctx, b)
	expectNoFrame(t, a)
	expectNoFrame(t, b)
}

func TestJoinDeliversHistoryAsSingleFrame(t *testing.T) {
	fs := newFakeStore()
	fs.seed("x", store.Message{UserName: "b", Text: "yo", Timestamp: "T1"})
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialRoom(t, ctx, ts.URL, "x")
	expectAck(t, ctx, conn)

	var history []store.Document
	if err := json.Unmarshal(readTextFrame(t, ctx, conn), &history); err != nil {
		t.Fatalf("history frame is not a JSON array: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 historical message, got %d", len(history))
	}
	doc := history[0]
	if doc.UserName != "b" || doc.Text != "yo" || doc.Timestamp != "T1" {
		t.Fatalf("unexpected history document: %+v", doc)
	}
	if doc.Key == "" {
		t.Fatal("history document lost its store identifier")
	}

	expectNoFrame(t, conn)
}

func TestLiveMessageReachesAllRoomSockets(t *testing.T) {
	fs := newFakeStore()
	fs.seed("lobby")
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dialRoom(t, ctx, ts.URL, "lobby")
	b := dialRoom(t, ctx, ts.URL, "lobby")
	expectAck(t, ctx, a)
	expectAck(t, ctx, b)

	resp := postMessage(t, ts.URL, "lobby", "a", "hi")
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("send-message status %d", resp.StatusCode)
	}
	var result map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode send-message response: %v", err)
	}
	if _, ok := result["result"]; !ok {
		t.Fatalf("response missing store receipt: %v", result)
	}

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		var msg store.Message
		if err := json.Unmarshal(readTextFrame(t, ctx, conn), &msg); err != nil {
			t.Fatalf("socket %s: decode live frame: %v", name, err)
		}
		if msg.UserName != "a" || msg.Text != "hi" || msg.Timestamp == "" {
			t.Fatalf("socket %s: unexpected live frame: %+v", name, msg)
		}
	}
}

func TestMessageNotDeliveredToOtherRooms(t *testing.T) {
	fs := newFakeStore()
	fs.seed("lobby")
	fs.seed("other")
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outsider := dialRoom(t, ctx, ts.URL, "other")
	expectAck(t, ctx, outsider)

	postMessage(t, ts.URL, "lobby", "a", "hi")
	expectNoFrame(t, outsider)
}

func TestFailedHistoryReadStillGoesLive(t *testing.T) {
	fs := newFakeStore()
	fs.seed("lobby")
	fs.readErr = &store.StatusError{Status: 500, Body: "cursor exploded"}
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialRoom(t, ctx, ts.URL, "lobby")
	expectAck(t, ctx, conn)

	// The socket must still be usable for live fan-out, and the first frame
	// after the ack must be the live message, not a history frame.
	postMessage(t, ts.URL, "lobby", "a", "still works")

	var msg store.Message
	if err := json.Unmarshal(readTextFrame(t, ctx, conn), &msg); err != nil {
		t.Fatalf("decode live frame: %v", err)
	}
	if msg.Text != "still works" {
		t.Fatalf("unexpected live frame: %+v", msg)
	}
}

func TestInboundSocketFramesAreIgnored(t *testing.T) {
	fs := newFakeStore()
	fs.seed("lobby")
	ts := startTestServer(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dialRoom(t, ctx, ts.URL, "lobby")
	b := dialRoom(t, ctx, ts.URL, "lobby")
	expectAck(t, ctx, a)
	expectAck(t, ctx, b)

	// Message submission happens over HTTP; a socket frame must not become
	// a chat message.
	if err := a.Write(ctx, websocket.MessageText, []byte(`{"message":"smuggled"}`)); err != nil {
		t.Fatalf("write inbound frame: %v", err)
	}
	expectNoFrame(t, b)
}
