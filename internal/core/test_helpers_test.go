package core

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/roomcast/roomcast-server/internal/store"
)

// fakeStore is an in-memory store.Store with controllable failures.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]store.Document

	describeErr error
	createErr   error
	appendErr   error
	readErr     error

	describeCalls int
	createCalls   int
	appendCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]store.Document)}
}

func (f *fakeStore) seed(room string, msgs ...store.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := f.collections[room]
	for _, msg := range msgs {
		docs = append(docs, store.Document{Key: strconv.Itoa(len(docs) + 1), Message: msg})
	}
	f.collections[room] = docs
}

func (f *fakeStore) DescribeCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls++
	if f.describeErr != nil {
		return f.describeErr
	}
	if _, ok := f.collections[name]; !ok {
		return &store.StatusError{Status: 404, Body: `{"error":true,"errorNum":1203}`}
	}
	return nil
}

func (f *fakeStore) CreateCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.collections[name]; ok {
		return &store.StatusError{Status: 409, Body: `{"error":true,"errorNum":1207}`}
	}
	f.collections[name] = nil
	return nil
}

func (f *fakeStore) Append(_ context.Context, room string, msg store.Message) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendCalls++
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	docs := f.collections[room]
	f.collections[room] = append(docs, store.Document{Key: strconv.Itoa(len(docs) + 1), Message: msg})
	return json.RawMessage(`{"result":[],"hasMore":false}`), nil
}

func (f *fakeStore) ReadAll(_ context.Context, room string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	docs := make([]store.Document, len(f.collections[room]))
	copy(docs, f.collections[room])
	return docs, nil
}

func (f *fakeStore) stored(room string) []store.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]store.Document, len(f.collections[room]))
	copy(docs, f.collections[room])
	return docs
}
