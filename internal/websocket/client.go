package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"stockchat/internal/chat"
)

// Inbound event names accepted from clients.
const (
	eventSendMessage = "send_message"
	eventJoinRoom    = "join_room"
	eventLeaveRoom   = "leave_room"
)

// inboundEnvelope is the wire frame for client-to-server events.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type messagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

// Client binds one websocket connection to a dispatch session. It implements
// chat.Connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	session  *chat.Session
	username string
}

// NewClient registers the connection with the hub and creates its dispatch
// session. username comes from the verified access token.
func NewClient(hub *Hub, conn *websocket.Conn, dispatcher *chat.Dispatcher, username string) *Client {
	c := &Client{hub: hub, conn: conn, username: username}
	hub.AddConnection(conn)
	c.session = dispatcher.NewSession(username, c)
	return c
}

// SendToCaller pushes an event to this connection only.
func (c *Client) SendToCaller(event string, payload any) {
	c.hub.Send(c.conn, event, payload)
}

func (c *Client) JoinRoom(roomID string) {
	c.hub.JoinRoom(roomID, c.conn)
}

func (c *Client) LeaveRoom(roomID string) {
	c.hub.LeaveRoom(roomID, c.conn)
}

// Run reads events until the connection drops, then tears the session down.
// It blocks and is meant to be called from the upgrade handler.
func (c *Client) Run(ctx context.Context) {
	defer func() {
		c.session.Close(ctx)
		c.hub.RemoveConnection(c.conn)
	}()

	c.SendToCaller(chat.EventConnected, map[string]string{"username": c.username})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket closed unexpectedly", "username", c.username, "error", err)
			}
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.SendToCaller(chat.EventError, chat.ErrorDTO{Message: "Malformed event", Code: "BAD_EVENT"})
			continue
		}

		switch env.Event {
		case eventSendMessage:
			var p messagePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				c.SendToCaller(chat.EventError, chat.ErrorDTO{Message: "Malformed event", Code: "BAD_EVENT"})
				continue
			}
			c.session.HandleMessage(ctx, p.RoomID, p.Content)
		case eventJoinRoom:
			var p roomPayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				c.SendToCaller(chat.EventError, chat.ErrorDTO{Message: "Malformed event", Code: "BAD_EVENT"})
				continue
			}
			c.session.HandleJoin(ctx, p.RoomID)
		case eventLeaveRoom:
			var p roomPayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				c.SendToCaller(chat.EventError, chat.ErrorDTO{Message: "Malformed event", Code: "BAD_EVENT"})
				continue
			}
			c.session.HandleLeave(ctx, p.RoomID)
		default:
			c.SendToCaller(chat.EventError, chat.ErrorDTO{Message: "Unknown event", Code: "BAD_EVENT"})
		}
	}
}
