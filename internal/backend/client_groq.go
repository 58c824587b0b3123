package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"piefitness/internal/logging"
)

// GroqClient implements Client for the Groq API (OpenAI-compatible wire).
type GroqClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultGroqConfig returns sensible defaults.
func DefaultGroqConfig(apiKey string) GroqConfig {
	return GroqConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama-3.1-8b-instant",
		Timeout: 30 * time.Second,
	}
}

// NewGroqClient creates a new Groq client with default config.
func NewGroqClient(apiKey string) *GroqClient {
	return NewGroqClientWithConfig(DefaultGroqConfig(apiKey))
}

// NewGroqClientWithConfig creates a new Groq client with custom config.
func NewGroqClientWithConfig(config GroqConfig) *GroqClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &GroqClient{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name identifies the provider.
func (c *GroqClient) Name() string { return string(ProviderGroq) }

// Model returns the current model.
func (c *GroqClient) Model() string { return c.model }

// SetModel changes the model used for completions.
func (c *GroqClient) SetModel(model string) { c.model = model }

// Complete sends a chat exchange and returns the completion text.
func (c *GroqClient) Complete(ctx context.Context, req Request) (string, error) {
	// Auto-apply timeout if context has no deadline (centralized timeout handling)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	// Rate limiting: keep a minimum gap between requests
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    wireMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		TopP:        0.9,
		Stream:      false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for 429 errors
	maxRetries := 3
	var lastErr error

	startTime := time.Now()
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var groqResp chatResponse
		if err := json.Unmarshal(body, &groqResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}

		if groqResp.Error != nil {
			return "", fmt.Errorf("API error: %s", groqResp.Error.Message)
		}

		if len(groqResp.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		text := strings.TrimSpace(groqResp.Choices[0].Message.Content)
		if text == "" {
			return "", fmt.Errorf("empty completion returned")
		}
		logging.Backend("[Groq] completed in %v model=%s response_len=%d", time.Since(startTime), c.model, len(text))
		return text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
