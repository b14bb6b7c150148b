package farmlink

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Canned replies per counterpart role. Picked round-robin style from a hash
// so a replayed conversation always gets the same answers.
var demoReplies = map[string][]string{
	"farmer": {
		"Fresh stock just came in this morning.",
		"I can do that quantity, when do you need delivery?",
		"Let me check with the cooperative and get back to you.",
		"That price is a bit low for this season, can you go higher?",
	},
	"retailer": {
		"We move about 50 crates a week, can you supply that?",
		"Send me your price list for this month.",
		"Quality looked great last time, let's repeat the order.",
		"Can you hold the lot until Thursday?",
	},
	"consumer": {
		"Is this available for pickup this weekend?",
		"Do you deliver to the city center?",
		"Great, I'll take two.",
		"Is it organically grown?",
	},
}

const (
	demoMinDelay = 2 * time.Second
	demoMaxDelay = 5 * time.Second
)

// DemoEngine simulates the counterpart when no server is reachable, so the
// chat UI stays demonstrable offline. Replies are canned, arrive after a
// short humanlike delay, and are fully deterministic for a given message
// sequence.
type DemoEngine struct {
	counterpart UserRef
	deliver     func(Message)

	mu  sync.Mutex
	seq int
}

// NewDemoEngine creates an engine answering as the given counterpart.
// Delivered messages carry generated IDs prefixed with "demo-".
func NewDemoEngine(counterpart UserRef, deliver func(Message)) *DemoEngine {
	return &DemoEngine{
		counterpart: counterpart,
		deliver:     deliver,
	}
}

// SeedConversation returns the canned opening exchange shown when the
// snapshot fetch fails. Output depends only on the two participants, so a
// demo run replays identically.
func SeedConversation(chatID string, caller, counterpart UserRef) []Message {
	base := time.Now().Add(-10 * time.Minute)
	openers := demoReplies[counterpart.Role]
	if len(openers) == 0 {
		openers = demoReplies["consumer"]
	}

	return []Message{
		{
			ID:        "demo-seed-1",
			ChatID:    chatID,
			Sender:    caller,
			Type:      "text",
			Content:   "Hi " + counterpart.Name + ", are you available to talk?",
			CreatedAt: base,
		},
		{
			ID:        "demo-seed-2",
			ChatID:    chatID,
			Sender:    counterpart,
			Type:      "text",
			Content:   openers[demoHash(chatID, 0)%uint32(len(openers))],
			CreatedAt: base.Add(30 * time.Second),
		},
	}
}

// HandleSend schedules the counterpart's reply to a locally sent message.
func (d *DemoEngine) HandleSend(m Message) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	reply := d.composeReply(m, seq)
	time.AfterFunc(demoDelay(m, seq), func() {
		d.deliver(reply)
	})
}

func (d *DemoEngine) composeReply(m Message, seq int) Message {
	reply := Message{
		ID:        fmt.Sprintf("demo-%d", seq),
		ChatID:    m.ChatID,
		Sender:    d.counterpart,
		Type:      "text",
		CreatedAt: time.Now(),
	}

	if m.Type == "negotiation" && m.Negotiation != nil {
		reply.Content = fmt.Sprintf("Noted, %s at %.2f for %d. Let me think about it.",
			m.Negotiation.ProductName, m.Negotiation.ProposedPrice, m.Negotiation.Quantity)
		return reply
	}

	pool := demoReplies[d.counterpart.Role]
	if len(pool) == 0 {
		pool = demoReplies["consumer"]
	}
	reply.Content = pool[demoHash(m.Content, seq)%uint32(len(pool))]
	return reply
}

// demoDelay derives a reply delay in [2s, 5s) from the message itself.
func demoDelay(m Message, seq int) time.Duration {
	span := uint32(demoMaxDelay - demoMinDelay)
	return demoMinDelay + time.Duration(demoHash(m.Content, seq)%span)
}

func demoHash(content string, seq int) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d", content, seq)
	return h.Sum32()
}
