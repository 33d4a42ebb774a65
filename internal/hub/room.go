// Package hub implements the room-scoped broadcast engine: a lazily
// created, never-evicted registry of rooms, per-room fan-out with a
// non-blocking drop policy for slow consumers, and the hand-off of
// every accepted message to the room's transcript writer.
package hub

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidelake/chatrelay/internal/transcript"
	"github.com/tidelake/chatrelay/pkg/log"
)

// Room is an isolated broadcast domain. It owns its member set and a
// writer for its transcript; both live for the process lifetime even
// while the room is empty.
type Room struct {
	ID string

	mu      sync.RWMutex
	members map[uint64]*Member

	writer     *transcript.Writer
	maxStrikes int
}

func newRoom(id string, writer *transcript.Writer, maxStrikes int) *Room {
	return &Room{
		ID:         id,
		members:    make(map[uint64]*Member),
		writer:     writer,
		maxStrikes: maxStrikes,
	}
}

// Join adds a member. User ids come from the registry's allocator and
// are never reused, so a duplicate id is a caller bug.
func (r *Room) Join(m *Member) {
	r.mu.Lock()
	r.members[m.ID] = m
	count := len(r.members)
	r.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldRoomID, r.ID).Uint64(log.FieldUserID, m.ID).Int("members", count).Msg("member joined room")
}

// Leave removes a member and closes its delivery queue. Safe to call
// for a member that was never joined or already removed; duplicate
// teardown signals are a no-op.
func (r *Room) Leave(userID uint64) {
	r.mu.Lock()
	m, ok := r.members[userID]
	if ok {
		delete(r.members, userID)
	}
	count := len(r.members)
	r.mu.Unlock()

	if !ok {
		return
	}
	close(m.send)

	l := log.L()
	l.Debug().Str(log.FieldRoomID, r.ID).Uint64(log.FieldUserID, userID).Int("members", count).Msg("member left room")
}

// Broadcast delivers payload to every member except the sender and
// hands the message to the transcript writer. The room lock serialises
// accepts, so members and the transcript observe the same room-local
// order. Enqueues never block: a member with a full queue loses its
// copy, and a member that keeps missing deliveries is evicted so its
// queue memory stays bounded. Returns the members evicted by this call.
func (r *Room) Broadcast(senderID uint64, payload []byte) []*Member {
	wire := []byte(fmt.Sprintf("<User#%d>: %s", senderID, payload))

	r.mu.Lock()
	r.writer.Append(transcript.Entry{
		Timestamp: time.Now(),
		UserID:    senderID,
		Payload:   string(payload),
	})

	var evicted []*Member
	for id, m := range r.members {
		if id == senderID {
			continue
		}
		select {
		case m.send <- wire:
			m.strikes = 0
		default:
			m.strikes++
			if m.strikes >= r.maxStrikes {
				delete(r.members, id)
				evicted = append(evicted, m)
			}
		}
	}
	r.mu.Unlock()

	for _, m := range evicted {
		close(m.send)
		l := log.L()
		l.Warn().Str(log.FieldRoomID, r.ID).Uint64(log.FieldUserID, m.ID).Int("strikes", m.strikes).Msg("evicting stalled member")
	}

	return evicted
}

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// TranscriptPath returns the room's transcript file path.
func (r *Room) TranscriptPath() string {
	return r.writer.Path()
}
