package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fake sessions never touch the connection; broadcast paths only use the
// Send channel.
func newTestClient(sessionID, userID, userName string) *Client {
	return NewClient(sessionID, userID, userName, nil)
}

func recvEvent(t *testing.T, client *Client) Event {
	t.Helper()

	select {
	case data := <-client.Send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()

	select {
	case data := <-client.Send:
		t.Fatalf("unexpected event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func register(t *testing.T, m *Manager, client *Client) {
	t.Helper()

	m.Register <- client
	event := recvEvent(t, client)
	require.Equal(t, EventConnected, event.Name)
}

func startManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(cancel)
	return m
}

func TestRegisterJoinsUserRoom(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	assert.Equal(t, 1, m.RoomSize(UserRoom("u1")))

	m.BroadcastToUser("u1", EventChatListUpdate, map[string]string{"chat_id": "c1"})
	event := recvEvent(t, client)
	assert.Equal(t, EventChatListUpdate, event.Name)
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.JoinRoom(client, ChatRoom("c1"))
	m.JoinRoom(client, ChatRoom("c1"))
	assert.Equal(t, 1, m.RoomSize(ChatRoom("c1")))

	// A single delivery despite the replayed join.
	m.BroadcastToChat("c1", EventNewMessage, nil)
	event := recvEvent(t, client)
	assert.Equal(t, EventNewMessage, event.Name)
	assertNoEvent(t, client)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.JoinRoom(client, ChatRoom("c1"))
	m.LeaveRoom(client, ChatRoom("c1"))
	assert.Equal(t, 0, m.RoomSize(ChatRoom("c1")))

	m.BroadcastToChat("c1", EventNewMessage, nil)
	assertNoEvent(t, client)
}

func TestMultipleSessionsPerUser(t *testing.T) {
	m := startManager(t)
	phone := newTestClient("s1", "u1", "Amara")
	laptop := newTestClient("s2", "u1", "Amara")
	register(t, m, phone)
	register(t, m, laptop)

	assert.Equal(t, 2, m.RoomSize(UserRoom("u1")))

	m.BroadcastToUser("u1", EventChatListUpdate, nil)
	assert.Equal(t, EventChatListUpdate, recvEvent(t, phone).Name)
	assert.Equal(t, EventChatListUpdate, recvEvent(t, laptop).Name)
}

func TestBroadcastToChatExceptSkipsUser(t *testing.T) {
	m := startManager(t)
	sender := newTestClient("s1", "u1", "Amara")
	peer := newTestClient("s2", "u2", "Bolu")
	register(t, m, sender)
	register(t, m, peer)

	m.JoinRoom(sender, ChatRoom("c1"))
	m.JoinRoom(peer, ChatRoom("c1"))

	m.BroadcastToChatExcept("c1", "u1", EventUserTyping, TypingPayload{ChatID: "c1", UserID: "u1"})

	assert.Equal(t, EventUserTyping, recvEvent(t, peer).Name)
	assertNoEvent(t, sender)
}

func TestUnregisterCleansRooms(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)
	m.JoinRoom(client, ChatRoom("c1"))

	m.Unregister <- client

	require.Eventually(t, func() bool {
		return m.RoomSize(UserRoom("u1")) == 0 && m.RoomSize(ChatRoom("c1")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Send channel is closed once the session is gone.
	_, open := <-client.Send
	assert.False(t, open)
}

func TestPingPong(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.HandleClientEvent(client, []byte(`{"event":"ping"}`))
	assert.Equal(t, EventPong, recvEvent(t, client).Name)
}

func TestJoinChatRoomEvent(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.HandleClientEvent(client, []byte(`{"event":"join-chat-room","chat_id":"c1"}`))
	assert.Equal(t, 1, m.RoomSize(ChatRoom("c1")))

	m.HandleClientEvent(client, []byte(`{"event":"leave-chat-room","chat_id":"c1"}`))
	assert.Equal(t, 0, m.RoomSize(ChatRoom("c1")))
}

func TestJoinOtherUsersRoomRejected(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.HandleClientEvent(client, []byte(`{"event":"join-user-room","data":{"user_id":"u2"}}`))

	event := recvEvent(t, client)
	assert.Equal(t, EventError, event.Name)
	assert.Equal(t, 0, m.RoomSize(UserRoom("u2")))
}

func TestTypingRelayForcesSenderIdentity(t *testing.T) {
	m := startManager(t)
	sender := newTestClient("s1", "u1", "Amara")
	peer := newTestClient("s2", "u2", "Bolu")
	register(t, m, sender)
	register(t, m, peer)
	m.JoinRoom(sender, ChatRoom("c1"))
	m.JoinRoom(peer, ChatRoom("c1"))

	// The frame claims to be from someone else; the relay overrides it.
	m.HandleClientEvent(sender, []byte(`{"event":"typing","chat_id":"c1","data":{"user_id":"u9","user_name":"Mallory"}}`))

	event := recvEvent(t, peer)
	assert.Equal(t, EventUserTyping, event.Name)

	var payload TypingPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "Amara", payload.UserName)

	assertNoEvent(t, sender)
}

func TestTypingRelayIsRateLimited(t *testing.T) {
	m := startManager(t)
	sender := newTestClient("s1", "u1", "Amara")
	peer := newTestClient("s2", "u2", "Bolu")
	register(t, m, sender)
	register(t, m, peer)
	m.JoinRoom(sender, ChatRoom("c1"))
	m.JoinRoom(peer, ChatRoom("c1"))

	frame := []byte(`{"event":"typing","chat_id":"c1"}`)
	for i := 0; i < 30; i++ {
		m.HandleClientEvent(sender, frame)
		assert.Equal(t, EventUserTyping, recvEvent(t, peer).Name)
	}

	// The bucket is drained; the frame is dropped silently.
	m.HandleClientEvent(sender, frame)
	assertNoEvent(t, peer)
	assertNoEvent(t, sender)
}

func TestUnknownEventReturnsError(t *testing.T) {
	m := startManager(t)
	client := newTestClient("s1", "u1", "Amara")
	register(t, m, client)

	m.HandleClientEvent(client, []byte(`{"event":"self-destruct"}`))
	assert.Equal(t, EventError, recvEvent(t, client).Name)
}
