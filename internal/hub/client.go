package hub

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tidelake/chatrelay/internal/config"
	"github.com/tidelake/chatrelay/internal/domain"
	"github.com/tidelake/chatrelay/pkg/log"
)

// Client bridges one websocket connection to a room: the read pump
// forwards inbound text frames to the relay, the write pump drains the
// member's delivery queue back to the socket.
type Client struct {
	Conn    *websocket.Conn
	Session *domain.Session

	// Room and Member are set when the session joins and are never
	// reassigned afterwards.
	Room   *Room
	Member *Member

	cfg config.WebSocketConfig
}

func NewClient(connID string, userID uint64, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		Conn:    conn,
		Session: domain.NewSession(connID, userID),
		cfg:     cfg,
	}
}

// ReadPump reads inbound frames and forwards text payloads via handle.
// A read error or a non-text frame ends the loop; closed is invoked
// exactly once on the way out so the session can leave its room.
func (c *Client) ReadPump(handle func(*Client, []byte), closed func(*Client)) {
	defer func() {
		closed(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		mt, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Str(log.FieldConnID, c.Session.ConnID).Err(err).Msg("websocket read error")
			}
			break
		}

		if mt != websocket.TextMessage {
			l := log.L()
			l.Warn().Str(log.FieldConnID, c.Session.ConnID).Int("message_type", mt).Msg("non-text frame, closing session")
			break
		}

		handle(c, message)
	}
}

// WritePump drains the member queue to the socket and keeps the
// connection alive with pings. It exits when the room closes the queue
// (leave or eviction) or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Member.Recv():
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
