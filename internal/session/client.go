package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/inamate/whiteboard/internal/interaction"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	closeWait  = 10 * time.Second
	maxMsgSize = 64 * 1024

	frameInterval = interaction.FrameInterval
)

// Client connects one websocket to one session. ReadPump feeds inbound
// messages to Run, which owns the session; WritePump drains outbound ones.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	codec    codec
	inbound  chan []byte
	send     chan []byte
	session  *Session
	ClientID string
}

func NewClient(hub *Hub, conn *websocket.Conn, cd codec, s *Session) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		codec:    cd,
		inbound:  make(chan []byte, 256),
		send:     make(chan []byte, 256),
		session:  s,
		ClientID: uuid.NewString(),
	}
}

func (c *Client) Session() *Session { return c.session }

// ReadPump forwards inbound messages to Run until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer close(c.inbound)

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "session", c.session.ID)
			return
		}
		c.inbound <- data
	}
}

// Run applies inbound messages to the session and sends at most one frame
// per frameInterval, only when something changed. It returns once ReadPump
// has stopped, after saving the board.
func (c *Client) Run() {
	ticker := time.NewTicker(frameInterval)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
		closeCtx, cancel := context.WithTimeout(context.Background(), closeWait)
		if err := c.session.Close(closeCtx); err != nil {
			slog.Error("save on close", "board", c.session.BoardID, "error", err)
		}
		cancel()
		close(c.send)
	}()

	for {
		select {
		case data, ok := <-c.inbound:
			if !ok {
				return
			}
			c.handle(data)

		case <-ticker.C:
			if frame, ok := c.session.NextFrame(); ok {
				c.Send(TypeFrame, frame)
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	typ, payload, err := c.codec.decode(data)
	if err != nil {
		slog.Warn("invalid message", "error", err, "session", c.session.ID)
		c.Send(TypeError, ErrorPayload{Message: "invalid message"})
		return
	}
	if err := c.session.Handle(typ, payload); err != nil {
		slog.Warn("rejected message", "type", typ, "error", err, "session", c.session.ID)
		c.Send(TypeError, ErrorPayload{Message: err.Error()})
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, c.codec.frameType(), message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "session", c.session.ID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues a message. It must be called from the Run goroutine.
func (c *Client) Send(typ string, payload any) {
	data, err := c.codec.encode(typ, payload)
	if err != nil {
		slog.Error("encode message", "type", typ, "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "session", c.session.ID)
	}
}
