package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"browsir/internal/llm"
	"browsir/internal/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]interface{}{
				"role":    "assistant",
				"content": content,
			},
		}},
		"usage": map[string]int{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
	}
}

// fakeOpenAI serves chat completions with the given answer and records requests.
func fakeOpenAI(t *testing.T, answer string) (*httptest.Server, *[]chatRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []chatRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(answer))
	})
	mux.HandleFunc("/v1/models/gpt-4o-mini", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gpt-4o-mini","object":"model","owned_by":"openai"}`))
	})
	mux.HandleFunc("/v1/models/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestClient(baseURL, model string, logger llm.Logger) *llm.Client {
	return llm.NewClient(llm.ClientConfig{
		APIKey:    "sk-test",
		Model:     model,
		MaxTokens: 1000,
		HTMLLimit: 100,
		BaseURL:   baseURL + "/v1",
	}, logger)
}

func TestClient_DetectPopups(t *testing.T) {
	t.Parallel()

	srv, requests := fakeOpenAI(t, `{"popups_found": true, "elements": [{"type": "button", "selector": "#accept", "button_text": "Accept", "confidence": 0.95}]}`)

	var logged []llm.RequestLog
	logger := &mock.LLMLogger{
		LogLLMRequestFn: func(_ context.Context, entry llm.RequestLog) error {
			logged = append(logged, entry)
			return nil
		},
	}

	client := newTestClient(srv.URL, "gpt-4o-mini", logger)
	html := "<html><body>" + strings.Repeat("x", 500) + "</body></html>"

	report, err := client.DetectPopups(llm.WithRunID(context.Background(), "run-1"), html)

	require.NoError(t, err)
	assert.True(t, report.PopupsFound)
	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "#accept", report.Candidates[0].Selector)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, html[:100]))
	assert.NotContains(t, req.Messages[1].Content, html[:101])

	require.Len(t, logged, 1)
	assert.Equal(t, "run-1", logged[0].RunID)
	assert.Equal(t, llm.ProviderOpenAI, logged[0].Provider)
	assert.Equal(t, 120, logged[0].TokensUsed)
	assert.Empty(t, logged[0].Error)
}

func TestClient_DetectPopups_MalformedAnswer(t *testing.T) {
	t.Parallel()

	srv, _ := fakeOpenAI(t, "no json here")
	client := newTestClient(srv.URL, "gpt-4o-mini", nil)

	report, err := client.DetectPopups(context.Background(), "<html></html>")

	require.Error(t, err)
	require.NotNil(t, report)
	assert.False(t, report.PopupsFound)
}

func TestClient_DetectPopups_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	var logged []llm.RequestLog
	logger := &mock.LLMLogger{
		LogLLMRequestFn: func(_ context.Context, entry llm.RequestLog) error {
			logged = append(logged, entry)
			return nil
		},
	}
	client := newTestClient(srv.URL, "gpt-4o-mini", logger)

	report, err := client.DetectPopups(context.Background(), "<html></html>")

	require.Error(t, err)
	assert.Nil(t, report)
	require.Len(t, logged, 1)
	assert.NotEmpty(t, logged[0].Error)
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	srv, _ := fakeOpenAI(t, "{}")

	assert.NoError(t, newTestClient(srv.URL, "gpt-4o-mini", nil).Ping(context.Background()))
	assert.Error(t, newTestClient(srv.URL, "gpt-unknown", nil).Ping(context.Background()))
}
