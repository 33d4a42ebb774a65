package audit

import (
	"context"

	"github.com/tidelake/chatrelay/pkg/log"
)

// Audit actions for the relay.
const (
	ActionJoinRoom        = "relay.join_room"
	ActionLeaveRoom       = "relay.leave_room"
	ActionSendMessage     = "relay.send_message"
	ActionSlowConsumer    = "relay.slow_consumer_disconnect"
	ActionDisconnect      = "relay.disconnect"
	ActionRejectedUpgrade = "relay.rejected_upgrade"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, roomID string, userID uint64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Uint64(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, roomID string, userID uint64, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Uint64(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
