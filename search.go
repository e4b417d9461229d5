package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// SearchProvider supplies evidence text with source provenance.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]EvidenceSnippet, error)
}

// TavilyClient is a minimal Tavily REST client. With no API key it is
// disabled and returns no snippets, which downstream code treats as
// sparse evidence (triggering metric-derived synthesis).
type TavilyClient struct {
	apiKey   string
	endpoint string
}

func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: "https://api.tavily.com/search",
	}
}

func (c *TavilyClient) Enabled() bool { return c.apiKey != "" }

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]EvidenceSnippet, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if maxResults < 1 {
		maxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    maxResults,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, &ExternalProviderError{Provider: "tavily", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ExternalProviderError{Provider: "tavily", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return nil, &ExternalProviderError{Provider: "tavily", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExternalProviderError{Provider: "tavily", Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != 200 {
		return nil, &ExternalProviderError{
			Provider: "tavily",
			Err:      fmt.Errorf("API returned %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ExternalProviderError{Provider: "tavily", Err: fmt.Errorf("parsing response: %w", err)}
	}

	now := time.Now().UTC()
	var snippets []EvidenceSnippet
	if answer := strings.TrimSpace(parsed.Answer); answer != "" {
		snippets = append(snippets, EvidenceSnippet{Text: answer, Source: "tavily:answer", Timestamp: now})
	}
	for _, row := range parsed.Results {
		content := strings.TrimSpace(row.Content)
		if content == "" {
			continue
		}
		source := strings.TrimSpace(row.URL)
		if source == "" {
			source = "tavily:result"
		}
		snippets = append(snippets, EvidenceSnippet{Text: content, Source: source, Timestamp: now})
	}

	log.Printf("search tavily query=%q results=%d", query, len(snippets))
	return snippets, nil
}
