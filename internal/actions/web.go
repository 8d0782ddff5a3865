package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

func newSearchWeb(client *http.Client) capability.Record {
	return builtin(
		"search_the_web",
		"Searches the web for current information and returns a short summary with sources.",
		`{"type":"object","properties":{"query":{"type":"string","description":"The search query"}},"required":["query"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			query, ok := args["query"].(string)
			if !ok || strings.TrimSpace(query) == "" {
				return "", fmt.Errorf("query must be a non-empty string")
			}
			return searchDuckDuckGo(ctx, client, query)
		},
	)
}

// searchDuckDuckGo uses the DuckDuckGo instant answer API, which needs no
// API key. Results are shallow but sufficient for fact lookups.
func searchDuckDuckGo(ctx context.Context, client *http.Client, query string) (string, error) {
	endpoint := "https://api.duckduckgo.com/?format=json&no_html=1&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	var payload struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("malformed web search response: %w", err)
	}

	var b strings.Builder
	if payload.Answer != "" {
		fmt.Fprintf(&b, "%s\n", payload.Answer)
	}
	if payload.AbstractText != "" {
		fmt.Fprintf(&b, "%s (%s)\n", payload.AbstractText, payload.AbstractURL)
	}
	count := 0
	for _, topic := range payload.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", topic.Text, topic.FirstURL)
		count++
		if count >= 5 {
			break
		}
	}

	if b.Len() == 0 {
		return "no results found for: " + query, nil
	}
	return b.String(), nil
}
