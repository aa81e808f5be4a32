package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SearchProvider is the pluggable backend for the search tool. A real
// search index or API client implements this interface.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SearchResult is a single hit returned by a SearchProvider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebResearch implements the WebResearch tool category: search and
// fetch_page.
type WebResearch struct {
	Provider SearchProvider
	Client   *http.Client
}

// NewWebResearch builds a WebResearch handler set with an HTTP client
// sized for page fetches, much shorter than the LLM call timeout.
func NewWebResearch(provider SearchProvider) WebResearch {
	return WebResearch{
		Provider: provider,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

// Search delegates to the configured SearchProvider.
func (w WebResearch) Search(ctx context.Context, args json.RawMessage) (string, error) {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("decode search args: %w", err)
	}
	if w.Provider == nil {
		return "", fmt.Errorf("no search provider configured")
	}
	results, err := w.Provider.Search(ctx, a.Query)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", a.Query, err)
	}
	if len(results) == 0 {
		return "no results", nil
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(b.String()), nil
}

type fetchPageArgs struct {
	URL string `json:"url"`
}

// FetchPage performs an HTTP GET and returns the response body as text,
// truncated to a reasonable size so a large page does not blow out the
// model's context window.
const maxFetchBody = 64 << 10

func (w WebResearch) FetchPage(ctx context.Context, args json.RawMessage) (string, error) {
	var a fetchPageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("decode fetch_page args: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", a.URL, err)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", a.URL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", a.URL, err)
	}
	return string(body), nil
}
