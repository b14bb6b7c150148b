package farmlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDemoConversation(t *testing.T, contents []string) []Message {
	t.Helper()

	replies := make(chan Message, len(contents))
	engine := NewDemoEngine(
		UserRef{ID: "farmer-1", Name: "Amara", Role: "farmer"},
		func(m Message) { replies <- m },
	)

	for _, content := range contents {
		engine.HandleSend(Message{ChatID: "c1", Content: content, Type: "text"})
	}

	out := make([]Message, 0, len(contents))
	for range contents {
		select {
		case m := <-replies:
			out = append(out, m)
		case <-time.After(6 * time.Second):
			t.Fatal("timed out waiting for demo reply")
		}
	}
	return out
}

func TestDemoRepliesAreDeterministic(t *testing.T) {
	first := runDemoConversation(t, []string{"hello", "any stock?"})
	second := runDemoConversation(t, []string{"hello", "any stock?"})

	require.Len(t, first, 2)
	contents := func(ms []Message) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.Content
		}
		return out
	}
	assert.ElementsMatch(t, contents(first), contents(second))
}

func TestDemoReplyDelayWithinRange(t *testing.T) {
	for seq := 1; seq <= 20; seq++ {
		d := demoDelay(Message{Content: "hello"}, seq)
		assert.GreaterOrEqual(t, d, demoMinDelay)
		assert.Less(t, d, demoMaxDelay)
	}
}

func TestDemoAnswersNegotiation(t *testing.T) {
	replies := make(chan Message, 1)
	engine := NewDemoEngine(
		UserRef{ID: "farmer-1", Name: "Amara", Role: "farmer"},
		func(m Message) { replies <- m },
	)

	engine.HandleSend(Message{
		ChatID: "c1",
		Type:   "negotiation",
		Negotiation: &Negotiation{
			ProductName:   "Tomatoes",
			ProposedPrice: 25,
			Quantity:      200,
			Status:        "pending",
		},
	})

	select {
	case m := <-replies:
		assert.Equal(t, "farmer-1", m.Sender.ID)
		assert.Contains(t, m.Content, "Tomatoes")
		assert.Contains(t, m.Content, "25.00")
	case <-time.After(6 * time.Second):
		t.Fatal("timed out waiting for demo reply")
	}
}

func TestSeedConversationIsDeterministic(t *testing.T) {
	caller := UserRef{ID: "retailer-1", Name: "Bolu", Role: "retailer"}
	counterpart := UserRef{ID: "farmer-1", Name: "Amara", Role: "farmer"}

	first := SeedConversation("c1", caller, counterpart)
	second := SeedConversation("c1", caller, counterpart)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].Content, second[0].Content)
	assert.Equal(t, first[1].Content, second[1].Content)
	assert.Equal(t, counterpart.ID, first[1].Sender.ID)
	assert.True(t, first[0].CreatedAt.Before(first[1].CreatedAt))
}

func TestDemoRepliesComeFromCounterpartRole(t *testing.T) {
	replies := runDemoConversation(t, []string{"ping"})
	require.Len(t, replies, 1)
	assert.Equal(t, "farmer", replies[0].Sender.Role)
	assert.Contains(t, demoReplies["farmer"], replies[0].Content)
}
