// Package farmlink provides a client for the FarmLink marketplace chat API.
package farmlink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a FarmLink REST API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client. The token authenticates every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// UserRef identifies a chat participant.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// Negotiation is a price offer attached to a message.
type Negotiation struct {
	ProductName   string  `json:"product_name"`
	OriginalPrice float64 `json:"original_price"`
	ProposedPrice float64 `json:"proposed_price"`
	Quantity      int     `json:"quantity"`
	Status        string  `json:"status"`
}

// Message is one entry in a chat's ordered log.
type Message struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chat_id"`
	Sender      UserRef      `json:"sender"`
	Content     string       `json:"content"`
	Type        string       `json:"message_type"`
	Negotiation *Negotiation `json:"negotiation,omitempty"`
	Read        bool         `json:"read"`
	CreatedAt   time.Time    `json:"created_at"`
	TempID      string       `json:"temp_id,omitempty"`
}

// Chat is a direct conversation between two users.
type Chat struct {
	ID            string         `json:"id"`
	Participants  []UserRef      `json:"participants"`
	Type          string         `json:"chat_type"`
	LastMessage   string         `json:"last_message"`
	LastMessageAt time.Time      `json:"last_message_at"`
	UnreadCount   map[string]int `json:"unread_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ChatWithMessages is a chat together with its message snapshot.
type ChatWithMessages struct {
	Chat
	Messages []Message `json:"messages"`
}

// Product is a marketplace listing.
type Product struct {
	ID        string    `json:"id"`
	FarmerID  string    `json:"farmer_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Unit      string    `json:"unit"`
	Quantity  int       `json:"quantity"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// envelope is the server's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// page is the server's pagination wrapper inside envelope.Data.
type page struct {
	Items json.RawMessage `json:"items"`
	Total int64           `json:"total"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farmlink: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (c *Client) doRequest(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("farmlink: bad response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *Client) getPage(path string, items interface{}) (int64, error) {
	var p page
	if err := c.doRequest("GET", path, nil, &p); err != nil {
		return 0, err
	}
	if len(p.Items) > 0 {
		if err := json.Unmarshal(p.Items, items); err != nil {
			return 0, err
		}
	}
	return p.Total, nil
}

// CreateChat starts a chat with the recipient, or returns the existing one.
func (c *Client) CreateChat(recipientID, initialMessage string) (*Chat, error) {
	req := map[string]string{
		"recipient_id":    recipientID,
		"initial_message": initialMessage,
	}
	var chat Chat
	if err := c.doRequest("POST", "/v1/chats", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns the caller's chats, most recently active first.
func (c *Client) ListChats(limit, offset int) ([]Chat, int64, error) {
	var chats []Chat
	total, err := c.getPage(fmt.Sprintf("/v1/chats?limit=%d&offset=%d", limit, offset), &chats)
	return chats, total, err
}

// GetChat fetches one chat with its message snapshot, oldest first.
func (c *Client) GetChat(chatID string, limit, offset int) (*ChatWithMessages, error) {
	var p page
	path := fmt.Sprintf("/v1/chats/%s?limit=%d&offset=%d", chatID, limit, offset)
	if err := c.doRequest("GET", path, nil, &p); err != nil {
		return nil, err
	}

	var chat ChatWithMessages
	if err := json.Unmarshal(p.Items, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetMessages fetches a chat's messages in (created_at, id) order.
func (c *Client) GetMessages(chatID string, limit, offset int) ([]Message, int64, error) {
	var messages []Message
	path := fmt.Sprintf("/v1/chats/%s/messages?limit=%d&offset=%d", chatID, limit, offset)
	total, err := c.getPage(path, &messages)
	return messages, total, err
}

// SendMessageRequest is the body for SendMessage.
type SendMessageRequest struct {
	Content     string       `json:"content,omitempty"`
	Type        string       `json:"type,omitempty"`
	TempID      string       `json:"temp_id,omitempty"`
	Negotiation *Negotiation `json:"negotiation,omitempty"`
}

// SendMessage appends a message to the chat.
func (c *Client) SendMessage(chatID string, req SendMessageRequest) (*Message, error) {
	var message Message
	if err := c.doRequest("POST", "/v1/chats/"+chatID+"/messages", req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// RespondNegotiation accepts, rejects or counters a pending offer.
func (c *Client) RespondNegotiation(chatID, messageID, status string, counterPrice float64) (*Message, error) {
	req := map[string]interface{}{
		"message_id": messageID,
		"status":     status,
	}
	if counterPrice > 0 {
		req["counter_price"] = counterPrice
	}
	var message Message
	if err := c.doRequest("POST", "/v1/chats/"+chatID+"/negotiations/respond", req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkChatAsRead clears the caller's unread counter for the chat.
func (c *Client) MarkChatAsRead(chatID string) error {
	return c.doRequest("PUT", "/v1/chats/"+chatID+"/read", nil, nil)
}

// ListUsers returns users the caller can start a chat with.
func (c *Client) ListUsers(limit, offset int) ([]UserRef, int64, error) {
	var users []UserRef
	total, err := c.getPage(fmt.Sprintf("/v1/users?limit=%d&offset=%d", limit, offset), &users)
	return users, total, err
}

// ListProducts returns marketplace listings, newest first.
func (c *Client) ListProducts(limit, offset int) ([]Product, int64, error) {
	var products []Product
	total, err := c.getPage(fmt.Sprintf("/v1/products?limit=%d&offset=%d", limit, offset), &products)
	return products, total, err
}
