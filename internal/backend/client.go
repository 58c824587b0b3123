// Package backend provides interchangeable LLM completion providers for
// the fitness assistant. Providers share a single capability: complete a
// chat exchange under an output-token budget. The Chain iterates a
// configured priority order until one provider succeeds.
package backend

import (
	"context"
	"errors"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Name identifies the provider (groq, openai, gemini).
	Name() string
	// Model returns the model identifier used for completions.
	Model() string
	// Complete sends a chat exchange and returns the completion text.
	Complete(ctx context.Context, req Request) (string, error)
}

// Message is one turn of chat history.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request is a completion request shared by all providers.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// ErrUnavailable is returned by the Chain when no provider produced a
// completion.
var ErrUnavailable = errors.New("no backend available")

// Provider represents an LLM provider.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// GroqConfig holds configuration for the Groq client.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// chatRequest is the OpenAI-compatible wire request (Groq uses the same
// chat/completions surface).
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible wire response.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func wireMessages(req Request) []chatMessage {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	return messages
}
