// Package n8n triggers workflow webhooks on an n8n instance.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Well-known flow slugs this service dispatches to.
const (
	FlowCreateLead      = "create_lead"
	FlowScheduleMeeting = "schedule_meeting"
)

type Config struct {
	// BaseURL resolves bare slugs to BaseURL + "/webhook/" + slug.
	BaseURL string

	// Optional basic auth applied to every trigger call.
	User     string
	Password string

	// Per-slug full URL overrides. An override beats BaseURL resolution.
	CreateLeadURL string
	ScheduleURL   string

	Timeout time.Duration
}

type Client struct {
	cfg   Config
	httpc *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:   Config{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), User: cfg.User, Password: cfg.Password, CreateLeadURL: cfg.CreateLeadURL, ScheduleURL: cfg.ScheduleURL, Timeout: timeout},
		httpc: &http.Client{Timeout: timeout},
	}
}

// Trigger fires one workflow webhook and returns its decoded JSON response.
// slugOrURL may be a known slug, any other slug (resolved against BaseURL),
// or a fully-qualified URL used verbatim. Non-JSON responses come back as
// {"status": <http status>}.
func (c *Client) Trigger(ctx context.Context, slugOrURL string, payload map[string]any) (map[string]any, error) {
	url, err := c.resolveURL(slugOrURL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.User != "" {
		req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("triggering workflow %q: %w", slugOrURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("triggering workflow %q: status %d", slugOrURL, resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return map[string]any{"status": resp.StatusCode}, nil
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding workflow response: %w", err)
	}
	return out, nil
}

func (c *Client) resolveURL(slugOrURL string) (string, error) {
	s := strings.TrimSpace(slugOrURL)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s, nil
	}
	if s == FlowCreateLead && c.cfg.CreateLeadURL != "" {
		return c.cfg.CreateLeadURL, nil
	}
	if s == FlowScheduleMeeting && c.cfg.ScheduleURL != "" {
		return c.cfg.ScheduleURL, nil
	}
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("no base URL configured and no absolute webhook URL for %q", s)
	}
	return c.cfg.BaseURL + "/webhook/" + s, nil
}
