package server

import (
	"errors"
	"sync"
	"time"

	"market-dashboard/src/dashboard"
	"market-dashboard/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

var errSlowClient = errors.New("client send buffer full")

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one browser on the push channel. It is the dashboard.Sink of
// its session.
type Client struct {
	server  *Server
	conn    *websocket.Conn
	session *dashboard.Connection
	send    chan models.MMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// -----------------------------------------------------------------------------

func newClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		server: s,
		conn:   conn,
		send:   make(chan models.MMessage, sendBuffer),
		closed: make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Send queues msg for the write pump without blocking. A client whose
// buffer is full is disconnected.
func (c *Client) Send(msg models.MMessage) error {
	select {
	case <-c.closed:
		return dashboard.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.server.Logger.Warning("Client too slow, disconnecting")
		c.close()
		return errSlowClient
	}
}

// -----------------------------------------------------------------------------

// close tears down the socket; the read pump then ends the session.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.server.Dashboard.Disconnect(c.session)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
		c.server.handleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
