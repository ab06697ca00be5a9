package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<p>Bonjour</p>"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL+"/", "secret", time.Minute)
	out, err := c.Complete(context.Background(), Request{Model: "gpt-x", SystemPrompt: "sys", Text: "<p>Hello</p>"})

	require.NoError(t, err)
	assert.Equal(t, "<p>Bonjour</p>", out)
	assert.Equal(t, "gpt-x", got.Model)
	assert.Equal(t, DefaultSeed, got.Seed)
	assert.Zero(t, got.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "<p>Hello</p>", got.Messages[1].Content)
}

func TestOpenAIClient_NoAPIKeyNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(srv.URL, "", time.Minute).Complete(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, want: ErrTransport},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "", want: ErrTransport},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: ErrMalformedResponse},
		{name: "null message", status: http.StatusOK, body: `{"choices":[{"finish_reason":"length"}]}`, want: ErrMalformedResponse},
		{name: "garbage", status: http.StatusOK, body: `not json`, want: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIClient(srv.URL, "k", time.Minute).Complete(context.Background(), Request{Model: "m"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOllamaClient_Defaults(t *testing.T) {
	c := NewOllamaClient("", 0)
	assert.Equal(t, DefaultOllamaURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Equal(t, "ollama", c.Name())
}
