package farmlink

import (
	"fmt"
	"sync"
	"time"
)

// MessageSource supplies a chat's message snapshot and accepts sends.
// Consumers program against this interface so the live server and the
// offline demo are interchangeable.
type MessageSource interface {
	OpenChat(chatID string) ([]Message, error)
	Send(chatID string, req SendMessageRequest) (*Message, error)
}

// NetworkSource is the live source backed by the REST client.
type NetworkSource struct {
	client *Client
}

func NewNetworkSource(client *Client) *NetworkSource {
	return &NetworkSource{client: client}
}

// OpenChat fetches the chat's message snapshot from the server.
func (s *NetworkSource) OpenChat(chatID string) ([]Message, error) {
	chat, err := s.client.GetChat(chatID, 50, 0)
	if err != nil {
		return nil, err
	}
	return chat.Messages, nil
}

// Send appends the message through the server.
func (s *NetworkSource) Send(chatID string, req SendMessageRequest) (*Message, error) {
	return s.client.SendMessage(chatID, req)
}

// DemoSource serves the seeded conversation and synthesizes counterpart
// replies locally; it never touches the network. Replies arrive through the
// deliver callback after the engine's humanlike delay.
type DemoSource struct {
	caller UserRef
	engine *DemoEngine

	mu  sync.Mutex
	seq int
}

func NewDemoSource(caller, counterpart UserRef, deliver func(Message)) *DemoSource {
	return &DemoSource{
		caller: caller,
		engine: NewDemoEngine(counterpart, deliver),
	}
}

// OpenChat returns the canned opening exchange for the pair.
func (s *DemoSource) OpenChat(chatID string) ([]Message, error) {
	return SeedConversation(chatID, s.caller, s.engine.counterpart), nil
}

// Send acknowledges the message locally and schedules the counterpart's
// reply through the engine.
func (s *DemoSource) Send(chatID string, req SendMessageRequest) (*Message, error) {
	s.mu.Lock()
	s.seq++
	n := s.seq
	s.mu.Unlock()

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}
	m := Message{
		ID:          fmt.Sprintf("demo-local-%d", n),
		ChatID:      chatID,
		Sender:      s.caller,
		Content:     req.Content,
		Type:        msgType,
		Negotiation: req.Negotiation,
		CreatedAt:   time.Now(),
		TempID:      req.TempID,
	}
	s.engine.HandleSend(m)
	return &m, nil
}

// FallbackSource prefers the network and flips to the demo source when the
// snapshot fetch fails. Once flipped it stays in demo mode, so a
// conversation never mixes live and canned messages.
type FallbackSource struct {
	network MessageSource
	demo    MessageSource

	mu         sync.Mutex
	demoActive bool
}

func NewFallbackSource(network, demo MessageSource) *FallbackSource {
	return &FallbackSource{network: network, demo: demo}
}

// DemoActive reports whether the source has fallen back to demo mode.
func (s *FallbackSource) DemoActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demoActive
}

// OpenChat loads the snapshot from the active source, switching to demo
// mode when the server cannot be reached.
func (s *FallbackSource) OpenChat(chatID string) ([]Message, error) {
	if s.DemoActive() {
		return s.demo.OpenChat(chatID)
	}

	messages, err := s.network.OpenChat(chatID)
	if err != nil {
		s.mu.Lock()
		s.demoActive = true
		s.mu.Unlock()
		return s.demo.OpenChat(chatID)
	}
	return messages, nil
}

// Send routes the message through whichever source is active.
func (s *FallbackSource) Send(chatID string, req SendMessageRequest) (*Message, error) {
	if s.DemoActive() {
		return s.demo.Send(chatID, req)
	}
	return s.network.Send(chatID, req)
}
