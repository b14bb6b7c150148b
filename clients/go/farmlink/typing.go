package farmlink

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	typingDebounce = 2 * time.Second
	typingTTL      = 5 * time.Second
)

// TypingNotifier coalesces keystrokes into at most one typing frame per
// burst. The first keystroke emits typing; stop-typing follows once the
// user has been idle for the debounce window.
type TypingNotifier struct {
	socket   *Socket
	chatID   string
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

func NewTypingNotifier(socket *Socket, chatID string) *TypingNotifier {
	return &TypingNotifier{
		socket:   socket,
		chatID:   chatID,
		debounce: typingDebounce,
	}
}

// Keystroke records input activity.
func (t *TypingNotifier) Keystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		t.active = true
		t.socket.Emit(EventTyping, t.chatID, TypingPayload{ChatID: t.chatID})
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, t.idle)
}

func (t *TypingNotifier) idle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	t.socket.Emit(EventStopTyping, t.chatID, TypingPayload{ChatID: t.chatID})
}

// Stop ends the burst immediately, for example when the message is sent.
func (t *TypingNotifier) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.active {
		t.active = false
		t.socket.Emit(EventStopTyping, t.chatID, TypingPayload{ChatID: t.chatID})
	}
}

// TypingTracker maintains who is typing in a chat from incoming frames. An
// entry expires on user-stop-typing or after a TTL, so a lost stop frame
// never leaves a name stuck on screen.
type TypingTracker struct {
	ttl time.Duration

	mu     sync.Mutex
	typing map[string]string // user id -> name
	timers map[string]*time.Timer
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		ttl:    typingTTL,
		typing: make(map[string]string),
		timers: make(map[string]*time.Timer),
	}
}

// Handle consumes a user-typing or user-stop-typing event.
func (t *TypingTracker) Handle(event Event) {
	var payload TypingPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.UserID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Name {
	case EventUserTyping:
		t.typing[payload.UserID] = payload.UserName
		if timer, ok := t.timers[payload.UserID]; ok {
			timer.Stop()
		}
		userID := payload.UserID
		t.timers[userID] = time.AfterFunc(t.ttl, func() { t.expire(userID) })

	case EventUserStopTyping:
		t.remove(payload.UserID)
	}
}

func (t *TypingTracker) expire(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(userID)
}

func (t *TypingTracker) remove(userID string) {
	delete(t.typing, userID)
	if timer, ok := t.timers[userID]; ok {
		timer.Stop()
		delete(t.timers, userID)
	}
}

// Names returns who is currently typing.
func (t *TypingTracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.typing))
	for _, name := range t.typing {
		names = append(names, name)
	}
	return names
}
