package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/compsight/compsight-api/internal/prompt"
)

// Defaults for the query-generation call. Generation is deterministic
// (temperature 0) and output-bounded; the structured query is small.
const (
	DefaultAPIURL    = "https://api.openai.com/v1/chat/completions"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 600
	DefaultTimeout   = 60 * time.Second

	// errorBodyPreviewLen bounds how much of an upstream error body is
	// kept in diagnostics.
	errorBodyPreviewLen = 500
)

// ClientConfig configures the query-generation client. Zero values take
// the package defaults.
type ClientConfig struct {
	APIURL    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Client issues query-generation requests to an OpenAI-compatible
// chat-completions API with a strict structured-output contract.
type Client struct {
	apiURL     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// message content parts for the multimodal user message.
type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat any           `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateQuery makes exactly one attempt against the AI service and
// returns the candidate query, or nil with a diagnostic reason when the
// call failed at any stage (transport, HTTP status, envelope shape,
// content parse). The caller decides what a nil candidate means; here it
// always means fall back to the baseline query.
func (c *Client) GenerateQuery(ctx context.Context, payload prompt.Payload, apiKey string) *Result {
	res := &Result{
		Diagnostics: Diagnostics{
			Model:         c.model,
			ImageCount:    payload.ImageCount,
			PromptPreview: payload.Preview,
		},
	}

	// User message content: text first, then image references in
	// extraction order.
	content := make([]any, 0, 1+len(payload.Images))
	content = append(content, textPart{Type: "text", Text: payload.UserText})
	for _, img := range payload.Images {
		content = append(content, imagePart{
			Type:     "image_url",
			ImageURL: imageURL{URL: img.URL, Detail: img.Detail},
		})
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: payload.System},
			{Role: "user", Content: content},
		},
		Temperature: 0,
		MaxTokens:   c.maxTokens,
		ResponseFormat: map[string]any{
			"type":        "json_schema",
			"json_schema": prompt.ResponseSchema(),
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		res.Diagnostics.Error = "request marshal failed: " + err.Error()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		res.Diagnostics.Error = "request build failed: " + err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	c.logger.Debug("making AI query request",
		"model", c.model,
		"image_count", payload.ImageCount,
		"prompt_length", len(payload.UserText),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		res.Diagnostics.Error = "request failed: " + err.Error()
		c.logger.Warn("AI query request failed", "error", err)
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Diagnostics.Error = "response read failed: " + err.Error()
		return res
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > errorBodyPreviewLen {
			preview = preview[:errorBodyPreviewLen]
		}
		res.Diagnostics.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, preview)
		c.logger.Warn("AI query API error", "status_code", resp.StatusCode, "response_length", len(body))
		return res
	}

	res.Diagnostics.RawResponse = json.RawMessage(body)

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		res.Diagnostics.Error = "no valid message in API response"
		return res
	}

	var candidate CandidateQuery
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &candidate); err != nil {
		res.Diagnostics.Error = "content parse error: " + err.Error()
		return res
	}

	res.Candidate = &candidate
	res.Diagnostics.Parsed = &candidate
	return res
}
