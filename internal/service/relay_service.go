package service

import (
	"context"
	"fmt"

	"github.com/tidelake/chatrelay/internal/audit"
	"github.com/tidelake/chatrelay/internal/hub"
)

type relayService struct {
	registry *hub.Registry
}

func NewRelayService(registry *hub.Registry) RelayService {
	return &relayService{registry: registry}
}

func (s *relayService) HandleJoin(ctx context.Context, c *hub.Client, roomID string) error {
	room, err := s.registry.GetOrCreate(roomID)
	if err != nil {
		return fmt.Errorf("failed to resolve room %s: %w", roomID, err)
	}

	member := s.registry.NewMember(c.Session.UserID)
	c.Room = room
	c.Member = member
	room.Join(member)
	c.Session.Join(roomID)

	audit.Log(ctx, audit.ActionJoinRoom, roomID, c.Session.UserID, "user joined room")
	return nil
}

func (s *relayService) HandleMessage(ctx context.Context, c *hub.Client, payload []byte) {
	evicted := c.Room.Broadcast(c.Session.UserID, payload)

	audit.Log(ctx, audit.ActionSendMessage, c.Room.ID, c.Session.UserID, "message relayed")

	for _, m := range evicted {
		audit.LogWithDetail(ctx, audit.ActionSlowConsumer, c.Room.ID, m.ID,
			"send queue full past strike threshold", "stalled member disconnected")
	}
}

func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	if !c.Session.BeginClose() {
		return
	}

	if c.Room != nil {
		c.Room.Leave(c.Session.UserID)
		audit.Log(ctx, audit.ActionLeaveRoom, c.Room.ID, c.Session.UserID, "user left room")
	}

	c.Session.FinishClose()
	audit.Log(ctx, audit.ActionDisconnect, c.Session.RoomID(), c.Session.UserID, "session closed")
}
