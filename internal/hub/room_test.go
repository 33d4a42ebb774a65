package hub

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidelake/chatrelay/internal/config"
	"github.com/tidelake/chatrelay/internal/transcript"
)

func newTestRegistry(t *testing.T) (*Registry, *transcript.Logger) {
	t.Helper()

	transcripts, err := transcript.NewLogger(config.TranscriptConfig{
		Dir:           t.TempDir(),
		QueueSize:     1024,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { transcripts.Close() })

	registry := NewRegistry(config.HubConfig{
		SendQueueSize:  16,
		MaxSendStrikes: 3,
	}, transcripts)

	return registry, transcripts
}

func recvOne(t *testing.T, m *Member) string {
	t.Helper()
	select {
	case msg, ok := <-m.Recv():
		require.True(t, ok, "delivery queue closed unexpectedly")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return ""
	}
}

func assertNoDelivery(t *testing.T, m *Member) {
	t.Helper()
	select {
	case msg := <-m.Recv():
		t.Fatalf("unexpected delivery: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	registry, _ := newTestRegistry(t)
	room, err := registry.GetOrCreate("room1")
	require.NoError(t, err)

	sender := registry.NewMember(registry.NextUserID())
	receiver := registry.NewMember(registry.NextUserID())
	room.Join(sender)
	room.Join(receiver)

	room.Broadcast(sender.ID, []byte("hello"))

	got := recvOne(t, receiver)
	assert.Equal(t, fmt.Sprintf("<User#%d>: hello", sender.ID), got)
	assertNoDelivery(t, sender)
}

func TestBroadcastOrderPreserved(t *testing.T) {
	registry, transcripts := newTestRegistry(t)
	room, err := registry.GetOrCreate("ordered")
	require.NoError(t, err)

	a := registry.NewMember(registry.NextUserID())
	b := registry.NewMember(registry.NextUserID())
	c := registry.NewMember(registry.NextUserID())
	room.Join(a)
	room.Join(b)
	room.Join(c)

	room.Broadcast(a.ID, []byte("first"))
	room.Broadcast(b.ID, []byte("second"))

	// Every member receiving both observes the same order.
	assert.Contains(t, recvOne(t, c), "first")
	assert.Contains(t, recvOne(t, c), "second")
	assert.Contains(t, recvOne(t, b), "first")
	assert.Contains(t, recvOne(t, a), "second")

	// The transcript holds both entries in accept order.
	require.NoError(t, transcripts.Close())
	data, err := os.ReadFile(room.TranscriptPath())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], fmt.Sprintf("\t%d: first", a.ID)), "line %q", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], fmt.Sprintf("\t%d: second", b.ID)), "line %q", lines[1])
}

func TestBroadcastIsolatedBetweenRooms(t *testing.T) {
	registry, _ := newTestRegistry(t)
	room1, err := registry.GetOrCreate("room1")
	require.NoError(t, err)
	room2, err := registry.GetOrCreate("room2")
	require.NoError(t, err)

	sender := registry.NewMember(registry.NextUserID())
	outsider := registry.NewMember(registry.NextUserID())
	room1.Join(sender)
	room2.Join(outsider)

	room1.Broadcast(sender.ID, []byte("internal"))

	assertNoDelivery(t, outsider)
}

func TestLeaveIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	room, err := registry.GetOrCreate("room1")
	require.NoError(t, err)

	stayer := registry.NewMember(registry.NextUserID())
	leaver := registry.NewMember(registry.NextUserID())
	room.Join(stayer)
	room.Join(leaver)

	room.Leave(leaver.ID)
	room.Leave(leaver.ID)
	room.Leave(9999) // never joined

	assert.Equal(t, 1, room.Len())

	// Remaining member still receives broadcasts.
	room.Broadcast(leaver.ID, []byte("still works"))
	assert.Contains(t, recvOne(t, stayer), "still works")
}

func TestBroadcastLogsEvenWithNoReceivers(t *testing.T) {
	registry, transcripts := newTestRegistry(t)
	room, err := registry.GetOrCreate("lonely")
	require.NoError(t, err)

	solo := registry.NewMember(registry.NextUserID())
	room.Join(solo)

	room.Broadcast(solo.ID, []byte("anyone there"))

	require.NoError(t, transcripts.Close())
	data, err := os.ReadFile(room.TranscriptPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf("%d: anyone there", solo.ID))
}

func TestSlowConsumerEvicted(t *testing.T) {
	transcripts, err := transcript.NewLogger(config.TranscriptConfig{
		Dir:           t.TempDir(),
		QueueSize:     1024,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { transcripts.Close() })

	registry := NewRegistry(config.HubConfig{
		SendQueueSize:  1,
		MaxSendStrikes: 3,
	}, transcripts)

	room, err := registry.GetOrCreate("room1")
	require.NoError(t, err)

	sender := registry.NewMember(registry.NextUserID())
	stalled := registry.NewMember(registry.NextUserID())
	healthy := registry.NewMember(registry.NextUserID())
	room.Join(sender)
	room.Join(stalled)
	room.Join(healthy)

	// Nobody drains stalled's queue: first broadcast fills it, the
	// next three are dropped and strike it out.
	var evicted []*Member
	for i := 0; i < 4; i++ {
		evicted = append(evicted, room.Broadcast(sender.ID, []byte(fmt.Sprintf("msg-%d", i)))...)
		// The healthy member keeps receiving every message.
		assert.Contains(t, recvOne(t, healthy), fmt.Sprintf("msg-%d", i))
	}

	require.Len(t, evicted, 1)
	assert.Equal(t, stalled.ID, evicted[0].ID)
	assert.Equal(t, 2, room.Len())

	// The evicted member's queue is closed once drained.
	<-stalled.Recv()
	_, ok := <-stalled.Recv()
	assert.False(t, ok, "evicted member's queue should be closed")
}

func TestDeliveryResetsStrikes(t *testing.T) {
	transcripts, err := transcript.NewLogger(config.TranscriptConfig{
		Dir:           t.TempDir(),
		QueueSize:     1024,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { transcripts.Close() })

	registry := NewRegistry(config.HubConfig{
		SendQueueSize:  1,
		MaxSendStrikes: 2,
	}, transcripts)

	room, err := registry.GetOrCreate("room1")
	require.NoError(t, err)

	sender := registry.NewMember(registry.NextUserID())
	slow := registry.NewMember(registry.NextUserID())
	room.Join(sender)
	room.Join(slow)

	// Fill the queue, take one strike, then drain and repeat. The
	// member recovers each time and is never evicted.
	for round := 0; round < 3; round++ {
		require.Empty(t, room.Broadcast(sender.ID, []byte("fill")))
		require.Empty(t, room.Broadcast(sender.ID, []byte("strike")))
		recvOne(t, slow)
	}

	assert.Equal(t, 2, room.Len())
}
