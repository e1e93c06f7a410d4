package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure OpenAIChat implements ChatCompleter
var _ driven.ChatCompleter = (*OpenAIChat)(nil)

const (
	// DefaultChatTimeout bounds a non-streaming completion
	DefaultChatTimeout = 120 * time.Second

	contentTypeEventStream = "text/event-stream"
)

// OpenAIChat implements ChatCompleter against any OpenAI-compatible
// /chat/completions endpoint (OpenAI, Ollama, vLLM, Open WebUI).
type OpenAIChat struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	streamClient *http.Client
}

// NewOpenAIChat creates a new chat completion client. The API key is
// optional for local model servers.
func NewOpenAIChat(apiKey, baseURL string, timeout time.Duration) (*OpenAIChat, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("chat completion base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}

	return &OpenAIChat{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		// Streams stay open for the whole answer; only the headers are bounded
		streamClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
			},
		},
	}, nil
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// chatResponse is the subset of the chat completions response we read
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete runs a non-streaming completion and returns the first choice
func (c *OpenAIChat) Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := c.doRequest(ctx, c.client, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("chat API error: %s (type: %s)", chatResp.Error.Message, chatResp.Error.Type)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("chat API returned no choices")
	}

	model := chatResp.Model
	if model == "" {
		model = req.Model
	}
	return &domain.ChatResponse{
		Model:   model,
		Content: chatResp.Choices[0].Message.Content,
		Raw:     respBody,
	}, nil
}

// Stream starts a streaming completion. The caller owns the returned body
// and must close it.
func (c *OpenAIChat) Stream(ctx context.Context, req domain.ChatRequest) (*domain.ChatStream, error) {
	resp, err := c.doRequest(ctx, c.streamClient, req, true)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeEventStream
	}
	return &domain.ChatStream{ContentType: contentType, Body: resp.Body}, nil
}

// Close releases idle connections
func (c *OpenAIChat) Close() error {
	c.client.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// doRequest posts to /chat/completions and returns the open response on 2xx
func (c *OpenAIChat) doRequest(ctx context.Context, client *http.Client, req domain.ChatRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{Model: req.Model, Messages: req.Messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", contentTypeEventStream)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}
