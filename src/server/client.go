package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"candle-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control frames
	sendBuffer     = 64
)

var errClientGone = errors.New("websocket client disconnected")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one WebSocket connection. It implements the event sink of its
// pipeline; writePump owns all writes to the socket.
type Client struct {
	id     string
	server *StreamServer
	conn   *websocket.Conn
	send   chan models.MStreamEvent
	gone   chan struct{}
	cancel context.CancelFunc
}

// Send queues an event for writePump.
func (c *Client) Send(ev models.MStreamEvent) error {
	select {
	case c.send <- ev:
		return nil
	case <-c.gone:
		return errClientGone
	}
}

// -----------------------------------------------------------------------------

func (s *StreamServer) handleWebSocket(c *gin.Context) {
	params, err := s.parseStreamParams(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	client := &Client{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		send:   make(chan models.MStreamEvent, sendBuffer),
		gone:   make(chan struct{}),
		cancel: cancel,
	}

	go client.writePump()
	go client.readPump()

	// Only this goroutine sends on client.send, so it may close it.
	defer close(client.send)
	defer cancel()

	if err := greet(client, client.id, params.Unknown); err != nil {
		return
	}

	p, err := s.openPipeline(ctx, client.id, params)
	if err != nil {
		_ = client.Send(ErrorEvent("", err))
		return
	}
	defer s.closePipeline(p)

	s.pump(ctx, p, client, nil, nil)
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		close(c.gone)
		c.cancel()
		c.conn.Close()
		c.server.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// The stream is one way; inbound frames only keep the deadline alive
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Stream ended server side
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.server.Logger.Info("Write error: %v", err)
				return
			}

		case <-c.gone:
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
