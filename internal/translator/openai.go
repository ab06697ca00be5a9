package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient talks to any chat-completions compatible server (OpenRouter,
// vLLM, llama.cpp, Ollama's /v1 endpoint). baseURL is the server root; the
// client appends /v1/chat/completions.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Seed        int           `json:"seed"`
	Stream      bool          `json:"stream"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	body := openAIChatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Text},
		},
		Temperature: DefaultTemperature,
		Seed:        DefaultSeed,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", transportError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", transportError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("X-Title", "chaptran")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError("request failed", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", malformedError("failed to decode response", err)
	}
	if len(out.Choices) == 0 {
		return "", malformedError("response has no choices", nil)
	}
	msg := out.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", malformedError("response has no choices[0].message.content", nil)
	}
	return *msg.Content, nil
}
