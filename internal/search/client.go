// Package search submits sanitized queries to the sold-items lookup
// service and normalizes its loosely-shaped responses into canonical
// stats and comparable sales.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/compsight/compsight-api/internal/models"
)

// Defaults for the sold-items endpoint.
const (
	DefaultAPIURL  = "https://ebay-average-selling-price.p.rapidapi.com/findCompletedItems"
	DefaultAPIHost = "ebay-average-selling-price.p.rapidapi.com"
	DefaultTimeout = 30 * time.Second

	// errorBodyPreviewLen bounds how much of an upstream error body is
	// logged; full bodies are never surfaced to callers.
	errorBodyPreviewLen = 500
)

// Error is a search-service failure. It is terminal for the lookup: the
// orchestrator renders it and writes nothing to the cache.
type Error struct {
	StatusCode int // 0 for transport failures
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// ClientConfig configures the search client. Zero values take the package
// defaults.
type ClientConfig struct {
	APIURL  string
	APIHost string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client performs authenticated sold-items searches.
type Client struct {
	apiURL     string
	apiHost    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.APIHost == "" {
		cfg.APIHost = DefaultAPIHost
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiURL:     cfg.APIURL,
		apiHost:    cfg.APIHost,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// Search submits the query in a single POST and returns the raw response
// body. Transport failures and non-success statuses are returned as
// *Error with a human-readable message; for HTTP failures the message
// carries the status code and only a bounded body preview is logged.
func (c *Client) Search(ctx context.Context, query models.SanitizedQuery, apiKey string) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(query)
	if err != nil {
		return nil, &Error{Message: "request marshal failed: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &Error{Message: "request build failed: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("x-rapidapi-key", apiKey)

	c.logger.Debug("searching sold items",
		"keywords", query.Keywords,
		"max_results", query.MaxSearchResults,
		"category_id", query.CategoryID,
		"aspect_count", len(query.Aspects),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("search request failed", "error", err)
		return nil, &Error{Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "response read failed: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := string(body)
		if len(preview) > errorBodyPreviewLen {
			preview = preview[:errorBodyPreviewLen]
		}
		c.logger.Warn("search API error",
			"status_code", resp.StatusCode,
			"response_preview", preview,
		)
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API error: %d", resp.StatusCode),
		}
	}

	return json.RawMessage(body), nil
}
