package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/internal/adapters/config"
	"phi/pkg/errors"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIProvider(config.AIConfig{
		OpenAIKey: "sk-test",
		BaseURL:   srv.URL + "/v1/",
		Timeout:   5 * time.Second,
	})
}

func TestOpenAIProvider_Chat(t *testing.T) {
	var captured map[string]interface{}

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "", "tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "tavily-search", "arguments": "{\"query\":\"btc etf flows\"}"}}
				]},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 14, "total_tokens": 134}
		}`))
	})

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: RoleSystem, Content: "system"},
			{Role: RoleUser, Content: "forecast BTC_24h"},
		},
		Tools: []ToolDefinition{{
			Type:     "function",
			Function: FunctionDefinition{Name: "tavily-search", Parameters: map[string]interface{}{"type": "object"}},
		}},
		ResponseFormatJSON: true,
	})
	require.NoError(t, err)

	choice, ok := resp.First()
	require.True(t, ok)
	assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "tavily-search", choice.Message.ToolCalls[0].Function.Name)
	assert.Equal(t, 134, resp.Usage.TotalTokens)

	// json_object mode is dropped while tools are offered
	assert.NotContains(t, captured, "response_format")
	assert.Len(t, captured["messages"], 2)
}

func TestOpenAIProvider_JSONMode(t *testing.T) {
	var captured map[string]interface{}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"},"finish_reason":"stop"}]}`))
	})

	_, err := p.Chat(context.Background(), ChatRequest{Model: "m", ResponseFormatJSON: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])
}

func TestOpenAIProvider_APIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExternal))
	assert.Contains(t, err.Error(), "slow down")
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	p := NewOpenAIProvider(config.AIConfig{BaseURL: "http://localhost"})
	_, err := p.Chat(context.Background(), ChatRequest{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestOpenAIProvider_ContextCancelled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
}
