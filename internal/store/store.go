package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Message is a chat message as it travels to and from the document store.
// The JSON field names are the wire contract shared with the browser client.
type Message struct {
	UserName  string `json:"userName"`
	Text      string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Document is a persisted message plus the identifiers the store assigns.
// Documents are append-only; nothing in this server updates or deletes them.
type Document struct {
	Key string `json:"_key,omitempty"`
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`
	Message
}

// NewTimestamp returns the current UTC time as an ISO-8601 string with
// millisecond precision, matching what browser clients produce.
func NewTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Store is the durable per-room message log. Each room is backed by one
// document collection named after the room.
type Store interface {
	// DescribeCollection checks that a room's collection exists. A missing
	// collection is reported as a *StatusError with status 404.
	DescribeCollection(ctx context.Context, name string) error

	// CreateCollection creates a room's backing collection with the fixed
	// append-optimized options.
	CreateCollection(ctx context.Context, name string) error

	// Append durably inserts a message into the room's collection and
	// returns the store's raw receipt.
	Append(ctx context.Context, room string, msg Message) (json.RawMessage, error)

	// ReadAll returns every document in the room's collection in the
	// store's append order, following cursor continuation until exhausted.
	ReadAll(ctx context.Context, room string) ([]Document, error)
}

// StatusError is any non-success response from the document store. Status
// and Body are kept verbatim for diagnostics; callers branch on Status,
// never on the error text.
type StatusError struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store: status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a store response with status 404. Only
// this condition may be read as "collection absent"; every other failure is
// a hard error.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}

// IsConflict reports whether err is a store response with status 409, which
// the store returns when a collection with the same name already exists.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 409
}

var roomNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,127}$`)

// ValidRoomName reports whether name is usable as a collection identifier.
// Room names end up inside query text, so nothing outside this pattern is
// ever allowed near the store.
func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}
