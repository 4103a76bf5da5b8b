package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/regwatch/internal/logger"
)

func newTestClaude(t *testing.T, handler http.HandlerFunc) *Claude {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClaude(ClaudeConfig{APIKey: "test-key", Timeout: 5 * time.Second}, logger.NewNop(),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
}

func TestClaude_Summarize(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}

	c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929",`+
			`"content":[{"type":"text","text":"Recent Rules: one proposed rule."}],`+
			`"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":7}}`)
	})

	summary, err := c.Summarize(context.Background(), "report body")
	require.NoError(t, err)
	assert.Equal(t, "Recent Rules: one proposed rule.", summary)

	assert.Equal(t, "claude-sonnet-4-5-20250929", got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.Contains(t, got.System[0].Text, "Why This Matters")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "report body", got.Messages[0].Content[0].Text)
}

func TestClaude_EmptyResponse(t *testing.T) {
	c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	})

	_, err := c.Summarize(context.Background(), "report body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestClaude_CircuitBreakerOpens(t *testing.T) {
	var calls int32
	c := newTestClaude(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	})

	for i := 0; i < 3; i++ {
		_, err := c.Summarize(context.Background(), "report body")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "claude api error")
	}

	_, err := c.Summarize(context.Background(), "report body")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "claude api unavailable")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNoopSummarizer(t *testing.T) {
	out, err := NoopSummarizer{}.Summarize(context.Background(), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}
