package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sourcePiece = "<p>It was the best of times, it was the worst of times.</p>"
	goodOutput  = "<p>C'était le meilleur des temps, c'était le pire des temps.</p>"
)

func ollamaServer(t *testing.T, handler func(req ollamaChatRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := handler(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func contentJSON(content string) string {
	b, _ := json.Marshal(map[string]any{"message": map[string]any{"role": "assistant", "content": content}})
	return string(b)
}

func TestTranslateOnce_Success(t *testing.T) {
	var got ollamaChatRequest
	srv := ollamaServer(t, func(req ollamaChatRequest) (int, string) {
		got = req
		return http.StatusOK, contentJSON(goodOutput)
	})

	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})
	out, err := tr.TranslateOnce(context.Background(), "qwen2.5:7b", "Translate into French.", sourcePiece)

	require.NoError(t, err)
	assert.Equal(t, goodOutput, out)

	assert.Equal(t, "qwen2.5:7b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, DefaultSeed, got.Options.Seed)
	assert.Zero(t, got.Options.Temperature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "Translate into French."}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: sourcePiece}, got.Messages[1])
}

func TestTranslateOnce_CleansBeforeValidating(t *testing.T) {
	srv := ollamaServer(t, func(ollamaChatRequest) (int, string) {
		return http.StatusOK, contentJSON("<think>french please</think>\n```html\n" + goodOutput + "\n```")
	})

	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})
	out, err := tr.TranslateOnce(context.Background(), "m", "p", sourcePiece)

	require.NoError(t, err)
	assert.Equal(t, goodOutput, out)
}

func TestTranslateOnce_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "model crashed", want: ErrTransport},
		{name: "context too long", status: http.StatusBadRequest, body: `{"error":"context length exceeded"}`, want: ErrTransport},
		{name: "not json", status: http.StatusOK, body: "<html>proxy</html>", want: ErrMalformedResponse},
		{name: "missing message", status: http.StatusOK, body: `{"done":true}`, want: ErrMalformedResponse},
		{name: "missing content", status: http.StatusOK, body: `{"message":{"role":"assistant"}}`, want: ErrMalformedResponse},
		{name: "empty output", status: http.StatusOK, body: contentJSON(""), want: ErrValidationRejected},
		{name: "structure stripped", status: http.StatusOK, body: contentJSON("C'était le meilleur des temps, c'était le pire des temps."), want: ErrValidationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ollamaServer(t, func(ollamaChatRequest) (int, string) { return tt.status, tt.body })
			tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})

			_, err := tr.TranslateOnce(context.Background(), "m1", "p", sourcePiece)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var terr *Error
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, "m1", terr.Model)
			assert.Contains(t, err.Error(), "m1")
		})
	}
}

func TestTranslateOnce_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := New(NewOllamaClient(url, time.Second), Options{})
	_, err := tr.TranslateOnce(context.Background(), "m", "p", sourcePiece)

	assert.ErrorIs(t, err, ErrTransport)
}

func TestTranslateOnce_CancelledContext(t *testing.T) {
	srv := ollamaServer(t, func(ollamaChatRequest) (int, string) {
		return http.StatusOK, contentJSON(goodOutput)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})
	_, err := tr.TranslateOnce(ctx, "m", "p", sourcePiece)

	assert.ErrorIs(t, err, context.Canceled)
	var terr *Error
	assert.False(t, errors.As(err, &terr))
}

func TestTranslateOnce_CancelDuringCallLetsItFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := ollamaServer(t, func(ollamaChatRequest) (int, string) {
		cancel()
		return http.StatusOK, contentJSON(goodOutput)
	})

	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})
	out, err := tr.TranslateOnce(ctx, "m", "p", sourcePiece)

	require.NoError(t, err)
	assert.Equal(t, goodOutput, out)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestTranslateOnce_CancelledContextSendsNothing(t *testing.T) {
	calls := 0
	srv := ollamaServer(t, func(ollamaChatRequest) (int, string) {
		calls++
		return http.StatusOK, contentJSON(goodOutput)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{})
	_, err := tr.TranslateOnce(ctx, "m", "p", sourcePiece)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestTranslateOnce_Trace(t *testing.T) {
	calls := 0
	srv := ollamaServer(t, func(ollamaChatRequest) (int, string) {
		calls++
		if calls == 1 {
			return http.StatusOK, contentJSON(goodOutput)
		}
		return http.StatusOK, contentJSON("nope")
	})

	var buf bytes.Buffer
	tr := New(NewOllamaClient(srv.URL, time.Minute), Options{Tracer: NewTracer(&buf)})

	_, err := tr.TranslateOnce(context.Background(), "m", "sys", sourcePiece)
	require.NoError(t, err)
	_, err = tr.TranslateOnce(context.Background(), "m", "sys", sourcePiece)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second TraceEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.True(t, first.Accepted)
	assert.Equal(t, "ollama", first.Backend)
	assert.Equal(t, "sys", first.SystemPrompt)
	assert.Equal(t, sourcePiece, first.Input)
	assert.NotEmpty(t, first.ID)

	assert.False(t, second.Accepted)
	assert.Contains(t, second.Error, "too short")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestError_IsAndMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&Error{Kind: KindTransport, Model: "m", Reason: "request failed", Cause: cause})

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "transport failure (model m): request failed: connection refused", err.Error())

	rejected := &Error{Kind: KindRejected, Reason: "too short"}
	assert.Equal(t, "validation rejected: too short", rejected.Error())
}
