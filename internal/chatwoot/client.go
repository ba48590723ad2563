// Package chatwoot is a minimal client for the slice of the Chatwoot REST
// API this service consumes: conversation attributes, status toggling and
// outgoing replies.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Status values Chatwoot accepts for a conversation.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusPending  Status = "pending"
	StatusSnoozed  Status = "snoozed"
)

// Conversation is the subset of the conversation resource we read.
type Conversation struct {
	CustomAttributes map[string]any `json:"custom_attributes"`
}

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient builds a client with a bounded per-request timeout. The platform
// being slow must never hang a webhook handler.
func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   accessToken,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// GetConversation fetches a conversation, including its custom attributes.
func (c *Client) GetConversation(ctx context.Context, accountID, conversationID int64) (*Conversation, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d", c.baseURL, accountID, conversationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching conversation: status %d", resp.StatusCode)
	}

	var conv Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	return &conv, nil
}

// SetAttributes upserts the conversation's custom attributes. Last writer
// wins; there is no version check on the platform side.
func (c *Client) SetAttributes(ctx context.Context, accountID, conversationID int64, attrs map[string]any) error {
	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d/custom_attributes", c.baseURL, accountID, conversationID)
	return c.post(ctx, url, map[string]any{"custom_attributes": attrs})
}

// SetStatus toggles the conversation status (e.g. back to "open" for a
// human handoff).
func (c *Client) SetStatus(ctx context.Context, accountID, conversationID int64, status Status) error {
	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d/toggle_status", c.baseURL, accountID, conversationID)
	return c.post(ctx, url, map[string]any{"status": string(status)})
}

// Reply sends an outgoing message on the conversation.
func (c *Client) Reply(ctx context.Context, accountID, conversationID int64, text string) error {
	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d/messages", c.baseURL, accountID, conversationID)
	return c.post(ctx, url, map[string]any{"content": text, "message_type": "outgoing"})
}

func (c *Client) post(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling chatwoot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calling chatwoot: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
