package farmlink

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFallbackSource(t *testing.T, baseURL string) (*FallbackSource, chan Message) {
	t.Helper()

	caller := UserRef{ID: "retailer-1", Name: "Bolu", Role: "retailer"}
	counterpart := UserRef{ID: "farmer-1", Name: "Amara", Role: "farmer"}

	replies := make(chan Message, 4)
	client := NewClient(baseURL, "tok")
	client.HTTPClient = &http.Client{Timeout: 2 * time.Second}

	source := NewFallbackSource(
		NewNetworkSource(client),
		NewDemoSource(caller, counterpart, func(m Message) { replies <- m }),
	)
	return source, replies
}

func TestFallbackSwitchesToDemoWhenServerUnreachable(t *testing.T) {
	source, replies := newFallbackSource(t, "http://127.0.0.1:9")

	messages, err := source.OpenChat("c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, source.DemoActive())
	assert.Equal(t, "farmer-1", messages[1].Sender.ID)
	assert.Contains(t, demoReplies["farmer"], messages[1].Content)

	// Sends now stay local and the counterpart answers on its own.
	sent, err := source.Send("c1", SendMessageRequest{Content: "hello", TempID: "tmp-1"})
	require.NoError(t, err)
	assert.Equal(t, "tmp-1", sent.TempID)
	assert.Equal(t, "retailer-1", sent.Sender.ID)

	select {
	case reply := <-replies:
		assert.Equal(t, "farmer", reply.Sender.Role)
		assert.Equal(t, "c1", reply.ChatID)
	case <-time.After(6 * time.Second):
		t.Fatal("timed out waiting for demo reply")
	}
}

func TestFallbackStaysOnNetworkWhileHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"items": {
					"id": "c1",
					"chat_type": "direct",
					"participants": [],
					"messages": [
						{"id": "m1", "chat_id": "c1", "content": "hello", "message_type": "text"}
					]
				},
				"total": 1
			}
		}`))
	}))
	defer srv.Close()

	source, _ := newFallbackSource(t, srv.URL)

	messages, err := source.OpenChat("c1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
	assert.False(t, source.DemoActive())
}

func TestFallbackStaysInDemoModeOnceFlipped(t *testing.T) {
	source, _ := newFallbackSource(t, "http://127.0.0.1:9")

	_, err := source.OpenChat("c1")
	require.NoError(t, err)
	require.True(t, source.DemoActive())

	// A later open never goes back to the network and replays the same seed.
	first, err := source.OpenChat("c1")
	require.NoError(t, err)
	second, err := source.OpenChat("c1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, first[1].Content, second[1].Content)
}
