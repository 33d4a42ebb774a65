package hub

import (
	"sync"
	"sync/atomic"

	"github.com/tidelake/chatrelay/internal/config"
	"github.com/tidelake/chatrelay/internal/transcript"
	"github.com/tidelake/chatrelay/pkg/log"
)

// Registry is the process-wide map of room id to Room. Rooms are
// created on first reference and never evicted; an emptied room stays
// addressable and keeps appending to the same transcript file. It also
// allocates the process-unique user ids handed to joining sessions.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	transcripts *transcript.Logger
	cfg         config.HubConfig

	nextUserID atomic.Uint64
}

func NewRegistry(cfg config.HubConfig, transcripts *transcript.Logger) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		transcripts: transcripts,
		cfg:         cfg,
	}
}

// GetOrCreate returns the room for roomID, creating it (and opening
// its transcript writer) on first reference. Racing first-joiners
// observe exactly one Room. The only failure is the transcript file
// open, which is session-local for the caller.
func (r *Registry) GetOrCreate(roomID string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return room, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		return room, nil
	}

	writer, err := r.transcripts.Writer(roomID)
	if err != nil {
		return nil, err
	}

	room = newRoom(roomID, writer, r.cfg.MaxSendStrikes)
	r.rooms[roomID] = room

	l := log.L()
	l.Info().Str(log.FieldRoomID, roomID).Msg("room created")
	return room, nil
}

// NextUserID allocates a process-unique user id, starting at 1 and
// never reused while the process runs.
func (r *Registry) NextUserID() uint64 {
	return r.nextUserID.Add(1)
}

// NewMember builds a member with the configured queue capacity.
func (r *Registry) NewMember(userID uint64) *Member {
	return NewMember(userID, r.cfg.SendQueueSize)
}

// RoomCount returns the number of rooms created so far.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
