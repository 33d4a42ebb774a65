// Package domain holds the connection-session model shared by the hub
// and the relay service.
package domain

import (
	"sync"
	"time"
)

// SessionState tracks a connection's lifecycle. Transitions only move
// forward: Connecting -> Joined -> Closing -> Closed.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateJoined
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one user's presence on the relay: its process-unique user
// id, the room it joined, and where it is in its lifecycle.
type Session struct {
	ConnID string
	UserID uint64

	mu        sync.RWMutex
	state     SessionState
	roomID    string
	createdAt time.Time
}

func NewSession(connID string, userID uint64) *Session {
	return &Session{
		ConnID:    connID,
		UserID:    userID,
		state:     StateConnecting,
		createdAt: time.Now(),
	}
}

// Join records the room and moves the session to Joined.
func (s *Session) Join(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.state = StateJoined
}

// BeginClose moves the session to Closing and reports whether this
// call won the transition. Duplicate teardown signals get false and
// must treat it as a no-op.
func (s *Session) BeginClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return false
	}
	s.state = StateClosing
	return true
}

// FinishClose marks the session terminal.
func (s *Session) FinishClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
