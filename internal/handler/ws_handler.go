package handler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tidelake/chatrelay/internal/audit"
	"github.com/tidelake/chatrelay/internal/config"
	"github.com/tidelake/chatrelay/internal/hub"
	"github.com/tidelake/chatrelay/internal/service"
	"github.com/tidelake/chatrelay/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// roomIDPattern restricts room ids to a single safe path segment; it
// also rules out traversal in the derived transcript file path.
var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type WSHandler struct {
	registry *hub.Registry
	service  service.RelayService
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(registry *hub.Registry, svc service.RelayService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		registry: registry,
		service:  svc,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket upgrades the connection, joins the room named by the
// path, and runs the session's pumps until it closes.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room")
	if !roomIDPattern.MatchString(roomID) {
		audit.LogWithDetail(r.Context(), audit.ActionRejectedUpgrade, roomID, 0, "invalid room id", "upgrade rejected")
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	client := hub.NewClient(connID, h.registry.NextUserID(), conn, h.wsCfg)

	// The request context dies with the handler; the session carries
	// its own logger-bearing context for the rest of its life.
	connLogger := log.Ctx(r.Context()).With().
		Str(log.FieldConnID, connID).
		Str(log.FieldRoomID, roomID).
		Uint64(log.FieldUserID, client.Session.UserID).
		Logger()
	ctx := log.WithLogger(context.Background(), connLogger)

	if err := h.service.HandleJoin(ctx, client, roomID); err != nil {
		connLogger.Error().Err(err).Msg("failed to join room")
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(
		func(c *hub.Client, message []byte) {
			h.service.HandleMessage(ctx, c, message)
		},
		func(c *hub.Client) {
			h.service.HandleDisconnect(ctx, c)
		},
	)
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/chat/{room}", h.HandleWebSocket)
}
