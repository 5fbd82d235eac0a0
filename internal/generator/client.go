package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
	strutil "github.com/voiceflow-community/voiceflow-agent-copilot/internal/strings"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// Request describes the tool the operator wants generated.
type Request struct {
	Description   string
	AgentName     string
	ExistingTools []string
}

// Source produces raw generator JSON for a request.
type Source interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  HTTPClient
	log     *logging.Logger
}

// NewClient creates a client using net/http.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	return NewClientWithHTTP(apiKey, baseURL, model, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client with an injected HTTP client.
func NewClientWithHTTP(apiKey, baseURL, model string, client HTTPClient) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: normalizeBaseURL(baseURL),
		model:   model,
		client:  client,
		log:     logging.New("generator"),
	}
}

// normalizeBaseURL makes any base URL end in /chat/completions.
func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return openaiAPIURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/chat/completions"
	}
	return baseURL + "/v1/chat/completions"
}

// BaseURL returns the resolved endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the configured model.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate asks the model for a tool definition and returns the JSON object
// found in its reply.
func (c *Client) Generate(ctx context.Context, req Request) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrGeneratorUnavailable)
	}
	start := time.Now()
	log := c.log.FromContext(ctx)

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Error("request_failed", map[string]interface{}{"model": c.model}, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrGeneratorUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("request_rejected", map[string]interface{}{"status": resp.StatusCode}, nil)
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGeneratorUnavailable, resp.StatusCode, strutil.Truncate(string(body), 300))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewGeneratorOutputError("decoding completion: %v", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGeneratorUnavailable, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, domain.NewGeneratorOutputError("completion has no choices")
	}

	raw, err := ExtractJSON(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	log.TimedEvent("generated", start, map[string]interface{}{"model": c.model, "bytes": len(raw)})
	return raw, nil
}

// ExtractJSON pulls the outermost JSON object out of model text, dropping
// code fences and surrounding prose.
func ExtractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, domain.NewGeneratorOutputError("no json object in response")
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, domain.NewGeneratorOutputError("response json is malformed")
	}
	return []byte(candidate), nil
}
