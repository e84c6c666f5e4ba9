package core

import "sync"

// Subscriptions maps room names to the set of live clients. It is the sole
// fan-out routing structure and lives exactly as long as the process; on
// restart clients must reconnect.
type Subscriptions struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewSubscriptions constructs an empty table.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe adds the client to its room's set.
func (s *Subscriptions) Subscribe(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rooms[c.Room]
	if !ok {
		set = make(map[*Client]struct{})
		s.rooms[c.Room] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes the client; the room entry is pruned once empty.
func (s *Subscriptions) Unsubscribe(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rooms[c.Room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(s.rooms, c.Room)
	}
}

// Broadcast queues the frame on every open client in the room and returns
// how many accepted it. Closed or backed-up clients are skipped silently; a
// bad socket must never stall delivery to the rest of the room.
func (s *Subscriptions) Broadcast(room string, frame []byte) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for client := range s.rooms[room] {
		if client.TrySend(frame) {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of clients currently subscribed to the room.
func (s *Subscriptions) Count(room string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}
