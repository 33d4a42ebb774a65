package service

import (
	"context"

	"github.com/tidelake/chatrelay/internal/hub"
)

// RelayService orchestrates a connection session's lifecycle against
// the room registry and the transcript path.
type RelayService interface {
	// HandleJoin resolves (or creates) the room and registers the
	// client as a member, moving its session to Joined.
	HandleJoin(ctx context.Context, c *hub.Client, roomID string) error

	// HandleMessage broadcasts one inbound text payload to the
	// client's room.
	HandleMessage(ctx context.Context, c *hub.Client, payload []byte)

	// HandleDisconnect leaves the room and closes out the session.
	// Duplicate calls are a no-op.
	HandleDisconnect(ctx context.Context, c *hub.Client)
}
