package farmlink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typingEvent(name, userID, userName string) Event {
	data, _ := json.Marshal(TypingPayload{ChatID: "c1", UserID: userID, UserName: userName})
	return Event{Name: name, ChatID: "c1", Data: data}
}

func TestNotifierCoalescesKeystrokes(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	notifier := &TypingNotifier{socket: socket, chatID: "c1", debounce: 100 * time.Millisecond}

	notifier.Keystroke()
	notifier.Keystroke()
	notifier.Keystroke()

	// One typing frame for the burst.
	assert.Equal(t, EventTyping, ts.recvFrame(t).Name)

	// Idle past the debounce window yields exactly one stop-typing.
	assert.Equal(t, EventStopTyping, ts.recvFrame(t).Name)

	select {
	case frame := <-ts.frames:
		t.Fatalf("unexpected extra frame: %s", frame.Name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNotifierNewBurstAfterIdle(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	notifier := &TypingNotifier{socket: socket, chatID: "c1", debounce: 50 * time.Millisecond}

	notifier.Keystroke()
	assert.Equal(t, EventTyping, ts.recvFrame(t).Name)
	assert.Equal(t, EventStopTyping, ts.recvFrame(t).Name)

	notifier.Keystroke()
	assert.Equal(t, EventTyping, ts.recvFrame(t).Name)
}

func TestNotifierStopEndsBurstImmediately(t *testing.T) {
	ts := newWSTestServer(t)
	socket := newConnectedSocket(t, ts)

	notifier := &TypingNotifier{socket: socket, chatID: "c1", debounce: time.Hour}

	notifier.Keystroke()
	assert.Equal(t, EventTyping, ts.recvFrame(t).Name)

	notifier.Stop()
	assert.Equal(t, EventStopTyping, ts.recvFrame(t).Name)

	// Stop again is a no-op.
	notifier.Stop()
	select {
	case frame := <-ts.frames:
		t.Fatalf("unexpected frame: %s", frame.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrackerFollowsTypingEvents(t *testing.T) {
	tracker := NewTypingTracker()

	tracker.Handle(typingEvent(EventUserTyping, "u1", "Amara"))
	tracker.Handle(typingEvent(EventUserTyping, "u2", "Bolu"))
	assert.ElementsMatch(t, []string{"Amara", "Bolu"}, tracker.Names())

	tracker.Handle(typingEvent(EventUserStopTyping, "u1", "Amara"))
	assert.Equal(t, []string{"Bolu"}, tracker.Names())
}

func TestTrackerExpiresStaleTyping(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.ttl = 50 * time.Millisecond

	tracker.Handle(typingEvent(EventUserTyping, "u1", "Amara"))
	require.Len(t, tracker.Names(), 1)

	// A lost stop-typing frame never leaves the name stuck.
	assert.Eventually(t, func() bool {
		return len(tracker.Names()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrackerIgnoresMalformedPayload(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.Handle(Event{Name: EventUserTyping, Data: json.RawMessage(`{`)})
	assert.Empty(t, tracker.Names())
}
