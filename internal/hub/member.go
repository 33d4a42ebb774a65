package hub

// Member is a joined user's presence in a room: its user id and the
// bounded queue the room pushes outbound frames into. The owning
// session drains the queue to the socket; the room is the only side
// that closes it.
type Member struct {
	ID   uint64
	send chan []byte

	// strikes counts consecutive undelivered messages. Guarded by the
	// room mutex; reset on any successful enqueue.
	strikes int
}

func NewMember(id uint64, queueSize int) *Member {
	return &Member{
		ID:   id,
		send: make(chan []byte, queueSize),
	}
}

// Recv returns the member's delivery queue. The channel is closed by
// the room when the member leaves or is evicted.
func (m *Member) Recv() <-chan []byte {
	return m.send
}
