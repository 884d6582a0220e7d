package screens

import (
	"encoding/json"
	"sync"
	"time"

	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/core"
	"beelogical.com/chat-portal/internal/store"
)

// Screen is one mounted Session Screen. Its conversation lives exactly as
// long as the screen does.
type Screen struct {
	ID        string
	Identity  auth.Identity
	Session   *core.ChatSession
	Links     []core.Link
	MountedAt time.Time

	pool        *ConnectionPool
	unsubscribe func()

	mu           sync.Mutex
	lastActivity time.Time
}

// State is the wire form of a screen pushed to live connections and
// returned by the JSON endpoints.
type State struct {
	Type     string         `json:"type"`
	ScreenID string         `json:"screen_id"`
	Identity auth.Identity  `json:"identity"`
	State    store.Snapshot `json:"state"`
}

func (s *Screen) Conversation() *store.Conversation {
	return s.Session.Conversation()
}

func (s *Screen) Pool() *ConnectionPool {
	return s.pool
}

func (s *Screen) State() State {
	return s.stateFrom(s.Conversation().Snapshot())
}

func (s *Screen) stateFrom(snap store.Snapshot) State {
	return State{Type: "state", ScreenID: s.ID, Identity: s.Identity, State: snap}
}

func (s *Screen) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Screen) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Screen) broadcast(snap store.Snapshot) {
	data, err := json.Marshal(s.stateFrom(snap))
	if err != nil {
		return
	}
	s.pool.Broadcast(data)
}

func (s *Screen) close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.pool.CloseAll()
}
