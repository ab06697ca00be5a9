package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultTimeout   = 5 * time.Minute

	// Decoding is pinned so reruns of the same piece are reproducible.
	DefaultSeed        = 101
	DefaultTemperature = 0.0
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Seed        int     `json:"seed"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Options  ollamaOptions `json:"options"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
}

// OllamaClient talks to an Ollama server's /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	client  *http.Client
}

func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Name() string {
	return "ollama"
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	body := ollamaChatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Text},
		},
		Options: ollamaOptions{Seed: DefaultSeed, Temperature: DefaultTemperature},
		Stream:  false,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", transportError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", transportError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError("request failed", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", malformedError("failed to decode response", err)
	}
	if out.Message == nil || out.Message.Content == nil {
		return "", malformedError("response has no message.content", nil)
	}
	return *out.Message.Content, nil
}

// checkStatus turns a non-2xx response into a transport error carrying a
// short excerpt of the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	reason := fmt.Sprintf("API returned status %d", resp.StatusCode)
	if s := strings.TrimSpace(string(snippet)); s != "" {
		reason += ": " + s
	}
	return transportError(reason, nil)
}
