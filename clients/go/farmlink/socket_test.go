package farmlink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsTestServer accepts upgrades on /ws and records every inbound frame.
type wsTestServer struct {
	srv    *httptest.Server
	frames chan Event

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	ts := &wsTestServer{frames: make(chan Event, 64)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event Event
			if json.Unmarshal(data, &event) == nil {
				ts.frames <- event
			}
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *wsTestServer) recvFrame(t *testing.T) Event {
	t.Helper()

	select {
	case event := <-ts.frames:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Event{}
	}
}

func (ts *wsTestServer) dropConnections() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, conn := range ts.conns {
		conn.Close()
	}
	ts.conns = nil
}

func newConnectedSocket(t *testing.T, ts *wsTestServer) *Socket {
	t.Helper()

	socket, err := NewSocket(ts.srv.URL, "test-token")
	require.NoError(t, err)
	require.NoError(t, socket.Connect())
	t.Cleanup(func() { socket.Close() })
	return socket
}

func TestSocketURLDerivation(t *testing.T) {
	socket, err := NewSocket("https://api.farmlink.example", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.farmlink.example/ws?token=tok-1", socket.wsURL)

	socket, err = NewSocket("http://localhost:8080", "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws?token=tok-2", socket.wsURL)
}

func TestSocketEmitAndJoin(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	assert.True(t, socket.Connected())

	socket.JoinChat("c1")
	frame := ts.recvFrame(t)
	assert.Equal(t, EventJoinChatRoom, frame.Name)
	assert.Equal(t, "c1", frame.ChatID)

	assert.True(t, socket.Ping())
	assert.Equal(t, EventPing, ts.recvFrame(t).Name)
}

func TestSocketDropsEmitsWhileDisconnected(t *testing.T) {
	socket, err := NewSocket("http://localhost:9", "tok")
	require.NoError(t, err)

	// Never connected; emits are dropped, not buffered.
	assert.False(t, socket.Emit(EventTyping, "c1", nil))
	assert.False(t, socket.Ping())
}

func TestSocketDispatchesServerEvents(t *testing.T) {
	ts := newWSTestServer(t)

	received := make(chan Event, 1)
	socket, err := NewSocket(ts.srv.URL, "tok")
	require.NoError(t, err)
	socket.On(EventNewMessage, func(e Event) { received <- e })
	require.NoError(t, socket.Connect())
	defer socket.Close()

	// Wait for the server to hold the connection, then push a frame.
	require.Eventually(t, func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return len(ts.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ts.mu.Lock()
	conn := ts.conns[0]
	ts.mu.Unlock()
	require.NoError(t, conn.WriteJSON(Event{Name: EventNewMessage, ChatID: "c1"}))

	select {
	case event := <-received:
		assert.Equal(t, "c1", event.ChatID)
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestSocketRunsEveryHandlerForEvent(t *testing.T) {
	socket, err := NewSocket("http://localhost:8080", "tok")
	require.NoError(t, err)

	var ran []string
	socket.On(EventNewMessage, func(Event) { ran = append(ran, "first") })
	socket.On(EventNewMessage, func(Event) { ran = append(ran, "second") })
	socket.On(EventPong, func(Event) { ran = append(ran, "pong") })

	socket.dispatch(Event{Name: EventNewMessage, ChatID: "c1"})
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestSocketReconnectReplaysSubscriptions(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	reconnected := make(chan struct{}, 1)
	socket.OnReconnect(func() { reconnected <- struct{}{} })

	socket.JoinChat("c1")
	require.Equal(t, EventJoinChatRoom, ts.recvFrame(t).Name)

	ts.dropConnections()

	select {
	case <-reconnected:
	case <-time.After(10 * time.Second):
		t.Fatal("socket never reconnected")
	}

	// The chat subscription is replayed on the new connection.
	frame := ts.recvFrame(t)
	assert.Equal(t, EventJoinChatRoom, frame.Name)
	assert.Equal(t, "c1", frame.ChatID)
	assert.True(t, socket.Connected())
}

func TestSocketCloseStopsReconnect(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	gaveUp := make(chan struct{}, 1)
	socket.OnDisconnect(func(error) { gaveUp <- struct{}{} })

	socket.Close()
	ts.dropConnections()

	select {
	case <-gaveUp:
		t.Fatal("closed socket should not run the reconnect loop")
	case <-time.After(1500 * time.Millisecond):
	}
	assert.False(t, socket.Connected())
}
