package sigrelay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramory-l/sigrelay/socketio"
)

type wireClient struct {
	t    *testing.T
	conn *websocket.Conn
	sid  string
}

func dialRelay(t *testing.T, url string) *wireClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + socketio.DefaultPath + "?EIO=4&transport=websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wireClient{t: t, conn: conn}

	open := c.read()
	require.True(t, strings.HasPrefix(open, "0{"), open)

	connect := c.read()
	require.True(t, strings.HasPrefix(connect, "40{"), connect)
	var ack struct {
		SID string `json:"sid"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(connect, "40")), &ack))
	c.sid = ack.SID
	return c
}

func (c *wireClient) read() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return string(data)
}

func (c *wireClient) emit(event string, payload interface{}) {
	c.t.Helper()
	frame, err := json.Marshal([]interface{}{event, payload})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, append([]byte("42"), frame...)))
}

// expect reads frames until the next event and decodes its envelope.
func (c *wireClient) expect(event string) map[string]interface{} {
	c.t.Helper()
	for {
		frame := c.read()
		if !strings.HasPrefix(frame, "42") {
			continue
		}
		var parts []json.RawMessage
		require.NoError(c.t, json.Unmarshal([]byte(frame[2:]), &parts))
		require.Len(c.t, parts, 2, frame)

		var name string
		require.NoError(c.t, json.Unmarshal(parts[0], &name))
		require.Equal(c.t, event, name, frame)

		var env map[string]interface{}
		require.NoError(c.t, json.Unmarshal(parts[1], &env))
		return env
	}
}

// until skips events other than event and returns the first envelope of it.
func (c *wireClient) until(event string) map[string]interface{} {
	c.t.Helper()
	for {
		frame := c.read()
		if !strings.HasPrefix(frame, "42") {
			continue
		}
		var parts []json.RawMessage
		require.NoError(c.t, json.Unmarshal([]byte(frame[2:]), &parts))
		var name string
		require.NoError(c.t, json.Unmarshal(parts[0], &name))
		if name != event {
			continue
		}
		var env map[string]interface{}
		require.NoError(c.t, json.Unmarshal(parts[1], &env))
		return env
	}
}

func TestAttach_OverWebSocket(t *testing.T) {
	server := socketio.NewServer(&socketio.Config{Logger: discardLogger()})
	hub := Attach(server.Of("/"), Options{Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	ts := httptest.NewServer(server)
	defer ts.Close()
	defer server.Close()

	a := dialRelay(t, ts.URL)
	b := dialRelay(t, ts.URL)

	a.emit(EventCreateRoom, map[string]interface{}{"room": "r1", "appName": "app"})
	created := a.expect(EventCreateRoom)
	assert.Equal(t, a.sid, created["target"])
	assert.Equal(t, map[string]interface{}{"room": "r1"}, created["data"])
	a.expect(EventJoinRoom)

	b.emit(EventJoinRoom, map[string]interface{}{"room": "r1"})
	joined := a.expect(EventJoinRoom)
	assert.Equal(t, b.sid, joined["target"])
	joined = b.expect(EventJoinRoom)
	assert.Equal(t, b.sid, joined["target"])

	b.emit(EventMessage, map[string]interface{}{"to": "r1", "message": map[string]interface{}{"type": "ping"}})
	msg := a.expect(EventMessage)
	assert.Equal(t, b.sid, msg["from"])
	assert.Equal(t, map[string]interface{}{"type": "ping"}, msg["data"])

	a.emit(EventLeaveRoom, map[string]interface{}{"room": "r1"})
	failure := a.expect(EventError)
	assert.Equal(t, map[string]interface{}{
		"type":    string(KindOwnerCannotLeave),
		"message": `Cannot leave room "r1". Owners cannot leave their rooms.`,
	}, failure["data"])

	a.emit("bogus", map[string]interface{}{})
	failure = a.expect(EventError)
	assert.Equal(t, string(KindInvalidCommand), failure["data"].(map[string]interface{})["type"])

	a.emit(EventDeleteRoom, map[string]interface{}{"room": "r1"})
	evicted := b.until(EventLeaveRoom)
	assert.Equal(t, map[string]interface{}{"room": "r1"}, evicted["data"])
	deleted := a.until(EventDeleteRoom)
	assert.Equal(t, a.sid, deleted["target"])
	assert.Equal(t, map[string]interface{}{"room": "r1"}, deleted["data"])
	assert.Empty(t, server.Of("/").RoomSockets("r1"))
}
