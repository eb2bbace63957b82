// Package websocket is the live-connection transport: a hub tracking which
// connections are in which rooms, and the per-connection read loop that feeds
// the chat dispatcher.
package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"stockchat/internal/metrics"
)

const writeDeadline = 5 * time.Second

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdAddConn struct {
	conn *websocket.Conn
}

func (cmdAddConn) hubCmd() {}

type cmdRemoveConn struct {
	conn *websocket.Conn
}

func (cmdRemoveConn) hubCmd() {}

type cmdJoinRoom struct {
	roomID string
	conn   *websocket.Conn
}

func (cmdJoinRoom) hubCmd() {}

type cmdLeaveRoom struct {
	roomID string
	conn   *websocket.Conn
}

func (cmdLeaveRoom) hubCmd() {}

type cmdBroadcast struct {
	roomID string
	data   []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdSend struct {
	conn *websocket.Conn
	data []byte
}

func (cmdSend) hubCmd() {}

type cmdRoomSize struct {
	roomID  string
	replyCh chan int
}

func (cmdRoomSize) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// envelope is the wire frame for every event pushed to clients.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub owns all connection state. A single goroutine processes commands, so
// room membership never needs a lock. One connection may be in any number of
// rooms.
type Hub struct {
	cmdCh   chan hubCmd
	writers map[*websocket.Conn]*clientWriter
	rooms   map[string]map[*websocket.Conn]struct{}
	done    chan struct{}
}

func NewHub() *Hub {
	hub := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		writers: make(map[*websocket.Conn]*clientWriter),
		rooms:   make(map[string]map[*websocket.Conn]struct{}),
		done:    make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdAddConn:
			h.handleAddConn(c.conn)
		case cmdRemoveConn:
			h.handleRemoveConn(c.conn)
		case cmdJoinRoom:
			h.handleJoinRoom(c.roomID, c.conn)
		case cmdLeaveRoom:
			h.handleLeaveRoom(c.roomID, c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.roomID, c.data)
		case cmdSend:
			h.handleSend(c.conn, c.data)
		case cmdRoomSize:
			c.replyCh <- len(h.rooms[c.roomID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleAddConn(conn *websocket.Conn) {
	if _, exists := h.writers[conn]; exists {
		return
	}
	h.writers[conn] = newClientWriter(conn)
	metrics.WebsocketConnectedClients.Set(float64(len(h.writers)))
}

func (h *Hub) handleRemoveConn(conn *websocket.Conn) {
	cw, exists := h.writers[conn]
	if !exists {
		return
	}
	for roomID := range h.rooms {
		h.handleLeaveRoom(roomID, conn)
	}
	cw.stop()
	delete(h.writers, conn)
	metrics.WebsocketConnectedClients.Set(float64(len(h.writers)))
}

func (h *Hub) handleJoinRoom(roomID string, conn *websocket.Conn) {
	if _, exists := h.writers[conn]; !exists {
		return
	}
	room, exists := h.rooms[roomID]
	if !exists {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[roomID] = room
	}
	room[conn] = struct{}{}
	metrics.WebsocketActiveRooms.Set(float64(len(h.rooms)))
}

func (h *Hub) handleLeaveRoom(roomID string, conn *websocket.Conn) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
	metrics.WebsocketActiveRooms.Set(float64(len(h.rooms)))
}

func (h *Hub) handleBroadcast(roomID string, data []byte) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn := range room {
		cw, ok := h.writers[conn]
		if !ok {
			continue
		}
		select {
		case cw.sendCh <- data:
		default:
			// client is slow, mark for removal
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "room_id", roomID)
		h.handleRemoveConn(conn)
	}
}

func (h *Hub) handleSend(conn *websocket.Conn, data []byte) {
	cw, exists := h.writers[conn]
	if !exists {
		return
	}
	select {
	case cw.sendCh <- data:
	default:
		slog.Warn("Disconnecting slow client")
		h.handleRemoveConn(conn)
	}
}

func (h *Hub) handleStop() {
	for conn, cw := range h.writers {
		cw.stop()
		delete(h.writers, conn)
	}
	h.rooms = make(map[string]map[*websocket.Conn]struct{})
	metrics.WebsocketConnectedClients.Set(0)
	metrics.WebsocketActiveRooms.Set(0)
}

// --- Public API ---

// AddConnection registers a connection and starts its writer.
func (h *Hub) AddConnection(conn *websocket.Conn) {
	h.cmdCh <- cmdAddConn{conn: conn}
}

// RemoveConnection drops a connection from every room and closes it.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.cmdCh <- cmdRemoveConn{conn: conn}
}

func (h *Hub) JoinRoom(roomID string, conn *websocket.Conn) {
	h.cmdCh <- cmdJoinRoom{roomID: roomID, conn: conn}
}

func (h *Hub) LeaveRoom(roomID string, conn *websocket.Conn) {
	h.cmdCh <- cmdLeaveRoom{roomID: roomID, conn: conn}
}

// BroadcastToRoom pushes an event to every connection currently in the room.
// Implements domain.Notifier.
func (h *Hub) BroadcastToRoom(roomID string, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "event", event, "error", err)
		return
	}
	h.cmdCh <- cmdBroadcast{roomID: roomID, data: data}
}

// Send pushes an event to a single connection.
func (h *Hub) Send(conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal event", "event", event, "error", err)
		return
	}
	h.cmdCh <- cmdSend{conn: conn, data: data}
}

// RoomSize returns the number of connections currently in a room.
func (h *Hub) RoomSize(roomID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdRoomSize{roomID: roomID, replyCh: replyCh}
	return <-replyCh
}

// Stop closes every connection and shuts the hub down.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
	<-h.done
}
