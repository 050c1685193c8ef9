package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"market-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	client.session = s.Dashboard.Connect(client)

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// handleClientMessage answers a bad message with an error message; the
// connection stays open.
func (s *Server) handleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Debug("Malformed client message: %v", err)
		s.replyError(client, "Invalid message")
		return
	}

	switch cmd.Type {
	case models.MessageRequestUpdate:
		if !client.session.RequestUpdate() {
			s.replyError(client, "Too many update requests")
		}

	case models.MessageConfigChanged:
		// The client saved the config elsewhere; pick it up now.
		client.session.Reload()
		s.Dashboard.RequestCheck()

	default:
		s.replyError(client, fmt.Sprintf("Unknown message type %q", cmd.Type))
	}
}

// -----------------------------------------------------------------------------

func (s *Server) replyError(client *Client, message string) {
	msg := models.MMessage{Type: models.MessageError, Data: models.MErrorPayload{Message: message}}
	if err := client.session.Notify(msg); err != nil {
		s.Logger.Debug("Cannot reply to client: %v", err)
	}
}
