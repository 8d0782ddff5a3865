package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const maxRecalled = 5

// Recalled is one piece of context returned from memory.
type Recalled struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client talks to the external memory service. Memory is best effort: an
// unreachable service degrades to the local index when one is configured,
// and to empty results otherwise. A run never fails because memory is down.
type Client struct {
	baseURL  string
	http     *http.Client
	fallback *Index // optional local index
}

// NewClient creates a memory client. baseURL may be empty, in which case
// only the fallback index (if any) is consulted.
func NewClient(baseURL string, fallback *Index) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		fallback: fallback,
	}
}

// Query retrieves context relevant to q, at most 5 entries.
func (c *Client) Query(ctx context.Context, q string) ([]Recalled, error) {
	if c.baseURL == "" {
		return c.queryFallback(q)
	}

	body, _ := json.Marshal(map[string]string{"query": q})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.queryFallback(q)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.queryFallback(q)
	}

	var payload struct {
		RelevantContext []Recalled `json:"relevant_context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.queryFallback(q)
	}

	out := payload.RelevantContext
	if len(out) > maxRecalled {
		out = out[:maxRecalled]
	}
	return out, nil
}

// Add stores text in memory for later recall.
func (c *Client) Add(ctx context.Context, text string) error {
	if c.baseURL == "" {
		return c.addFallback(text)
	}

	body, _ := json.Marshal(map[string]string{"text_to_remember": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.addFallback(text)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("memory service returned %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("malformed memory service response: %w", err)
	}
	return nil
}

func (c *Client) queryFallback(q string) ([]Recalled, error) {
	if c.fallback == nil {
		return nil, nil
	}
	return c.fallback.Query(q, maxRecalled)
}

func (c *Client) addFallback(text string) error {
	if c.fallback == nil {
		return nil
	}
	return c.fallback.Add(text, nil)
}
