package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServerConnPair creates a connected pair of WebSocket connections and
// registers the server side with the hub. The hub only knows server-side
// conns, so tests drive it through the server end and read from the client.
func newServerConnPair(t *testing.T, hub *Hub) (serverSide *ws.Conn, clientSide *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.AddConnection(conn)
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

// waitForRoomSize polls until the room has the expected number of connections.
func waitForRoomSize(hub *Hub, roomID string, expected int) bool {
	for i := 0; i < 100; i++ {
		if hub.RoomSize(roomID) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readEnvelope(t *testing.T, conn *ws.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	server1, client1 := newServerConnPair(t, hub)
	server2, client2 := newServerConnPair(t, hub)

	hub.JoinRoom("1", server1)
	hub.JoinRoom("1", server2)
	require.True(t, waitForRoomSize(hub, "1", 2))

	hub.BroadcastToRoom("1", "message_received", map[string]string{"content": "hello"})

	for _, conn := range []*ws.Conn{client1, client2} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "message_received", env.Event)
		data := env.Data.(map[string]any)
		assert.Equal(t, "hello", data["content"])
	}
}

func TestHub_BroadcastIsRoomScoped(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	serverA, clientA := newServerConnPair(t, hub)
	serverB, clientB := newServerConnPair(t, hub)

	hub.JoinRoom("1", serverA)
	hub.JoinRoom("2", serverB)
	require.True(t, waitForRoomSize(hub, "1", 1))
	require.True(t, waitForRoomSize(hub, "2", 1))

	hub.BroadcastToRoom("1", "message_received", "only room one")

	env := readEnvelope(t, clientA)
	assert.Equal(t, "only room one", env.Data)

	clientB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := clientB.ReadMessage()
	assert.Error(t, err, "room 2 must not receive the broadcast")
}

func TestHub_Send(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	server1, client1 := newServerConnPair(t, hub)
	_, client2 := newServerConnPair(t, hub)

	hub.Send(server1, "error", map[string]string{"code": "EMPTY_MESSAGE"})

	env := readEnvelope(t, client1)
	assert.Equal(t, "error", env.Event)

	client2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := client2.ReadMessage()
	assert.Error(t, err, "send targets a single connection")
}

func TestHub_LeaveRoom(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	server1, client1 := newServerConnPair(t, hub)

	hub.JoinRoom("1", server1)
	require.True(t, waitForRoomSize(hub, "1", 1))

	hub.LeaveRoom("1", server1)
	require.True(t, waitForRoomSize(hub, "1", 0))

	hub.BroadcastToRoom("1", "message_received", "late")

	client1.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := client1.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RemoveConnectionLeavesRooms(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	server1, _ := newServerConnPair(t, hub)
	hub.JoinRoom("1", server1)
	hub.JoinRoom("2", server1)
	require.True(t, waitForRoomSize(hub, "1", 1))
	require.True(t, waitForRoomSize(hub, "2", 1))

	hub.RemoveConnection(server1)
	require.True(t, waitForRoomSize(hub, "1", 0))
	require.True(t, waitForRoomSize(hub, "2", 0))
}

func TestHub_ClientDisconnectIsDetected(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(conn)
		hub.JoinRoom("1", conn)
		go func() {
			defer hub.RemoveConnection(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.True(t, waitForRoomSize(hub, "1", 1))

	conn.Close()
	require.True(t, waitForRoomSize(hub, "1", 0))
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	// Should not panic
	hub.BroadcastToRoom("99", "message_received", "nobody home")
}

func TestHub_JoinUnknownConnectionIgnored(t *testing.T) {
	hub := NewHub()
	t.Cleanup(func() { hub.Stop() })

	// A conn never registered with the hub cannot join a room.
	server1, _ := newServerConnPair(t, hub)
	hub.RemoveConnection(server1)
	require.True(t, waitForRoomSize(hub, "1", 0))

	hub.JoinRoom("1", server1)
	assert.True(t, waitForRoomSize(hub, "1", 0))
}
