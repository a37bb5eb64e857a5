package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 16 * 1024
	sendBuffer = 256
)

type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	sendMu        sync.Mutex
	closed        bool
	ParticipantID string
	DisplayName   string
	SessionID     string
	ClientID      string
	Role          auth.Role
}

func NewClient(hub *Hub, conn *websocket.Conn, claims *auth.Claims, displayName, clientID string) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		ParticipantID: claims.ParticipantID(),
		DisplayName:   displayName,
		SessionID:     claims.SessionID,
		ClientID:      clientID,
		Role:          claims.Role,
	}
}

// CanSubmit reports whether the client may send gesture operations.
func (c *Client) CanSubmit() bool {
	return c.Role == auth.RoleDriver
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "participant", c.ParticipantID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "participant", c.ParticipantID)
			continue
		}

		msg.ParticipantID = c.ParticipantID
		msg.ClientID = c.ClientID
		msg.SessionID = c.SessionID

		c.hub.handleMessage(c, &msg)
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
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "participant", c.ParticipantID)
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

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "participant", c.ParticipantID)
	}
}

// closeSend stops the write pump once queued messages are flushed.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
