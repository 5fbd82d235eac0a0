package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

// fakeHTTP records the last request and replies with a canned response.
type fakeHTTP struct {
	status int
	body   string
	err    error
	last   *http.Request
	sent   chatRequest
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.last = req
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(data, &f.sent)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     make(http.Header),
	}, nil
}

func completion(content string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(data)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", openaiAPIURL},
		{"http://localhost:11434", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:11434/v1/", "http://localhost:11434/v1/chat/completions"},
		{"https://proxy/v1/chat/completions", "https://proxy/v1/chat/completions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeBaseURL(tt.in), tt.in)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "http://local/v1")

	c := NewClientWithHTTP("", "", "", &fakeHTTP{})
	assert.Equal(t, "env-key", c.apiKey)
	assert.Equal(t, "http://local/v1/chat/completions", c.BaseURL())
	assert.Equal(t, DefaultModel, c.Model())
}

func TestGenerateSendsPromptAndExtractsJSON(t *testing.T) {
	fake := &fakeHTTP{
		status: http.StatusOK,
		body:   completion("Here you go:\n```json\n{\"tool\": {\"name\": \"Ping\", \"url\": \"https://x\"}}\n```"),
	}
	c := NewClientWithHTTP("k", "", "test-model", fake)

	raw, err := c.Generate(context.Background(), Request{
		Description:   "ping the health endpoint",
		AgentName:     "Support",
		ExistingTools: []string{"Get user"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool": {"name": "Ping", "url": "https://x"}}`, string(raw))

	require.NotNil(t, fake.last)
	assert.Equal(t, http.MethodPost, fake.last.Method)
	assert.Equal(t, "Bearer k", fake.last.Header.Get("Authorization"))
	assert.Equal(t, "test-model", fake.sent.Model)
	require.Len(t, fake.sent.Messages, 2)
	assert.Equal(t, "system", fake.sent.Messages[0].Role)
	assert.Contains(t, fake.sent.Messages[1].Content, "ping the health endpoint")
	assert.Contains(t, fake.sent.Messages[1].Content, "Get user")
	require.NotNil(t, fake.sent.ResponseFormat)
	assert.Equal(t, "json_object", fake.sent.ResponseFormat.Type)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		fake   *fakeHTTP
		want   error
	}{
		{"missing key", "", &fakeHTTP{}, domain.ErrGeneratorUnavailable},
		{"network", "k", &fakeHTTP{err: errors.New("connection refused")}, domain.ErrGeneratorUnavailable},
		{"server error", "k", &fakeHTTP{status: 500, body: "boom"}, domain.ErrGeneratorUnavailable},
		{"api error", "k", &fakeHTTP{status: 200, body: `{"error": {"message": "quota"}}`}, domain.ErrGeneratorUnavailable},
		{"no choices", "k", &fakeHTTP{status: 200, body: `{"choices": []}`}, domain.ErrInvalidGeneratorOutput},
		{"prose reply", "k", &fakeHTTP{status: 200, body: completion("I cannot do that.")}, domain.ErrInvalidGeneratorOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			c := NewClientWithHTTP(tt.apiKey, "", "", tt.fake)
			_, err := c.Generate(context.Background(), Request{Description: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`, false},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"fence without language", "```\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"surrounding prose", "Sure! {\"a\": {\"b\": 2}} Hope that helps.", `{"a": {"b": 2}}`, false},
		{"no object", "nothing here", "", true},
		{"malformed", `{"a": }`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidGeneratorOutput)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
