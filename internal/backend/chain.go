package backend

import (
	"context"
	"fmt"

	"piefitness/internal/config"
	"piefitness/internal/logging"
)

// Chain tries a prioritized list of providers until one succeeds.
// Which providers are configured is fixed at process start; the chain is
// read-only after construction.
type Chain struct {
	clients []Client
}

// NewChain builds a chain from an explicit client list.
func NewChain(clients ...Client) *Chain {
	return &Chain{clients: clients}
}

// NewChainFromConfig builds the chain from service configuration. The
// preferred provider goes first; remaining configured providers follow in
// default order (groq, openai, gemini). An empty chain is valid - the
// caller falls back to rule-based responses.
func NewChainFromConfig(cfg config.BackendsConfig) *Chain {
	order := []string{string(ProviderGroq), string(ProviderOpenAI), string(ProviderGemini)}
	if cfg.Preferred != "" && cfg.Preferred != order[0] {
		reordered := []string{cfg.Preferred}
		for _, name := range order {
			if name != cfg.Preferred {
				reordered = append(reordered, name)
			}
		}
		order = reordered
	}

	var clients []Client
	for _, name := range order {
		switch Provider(name) {
		case ProviderGroq:
			if cfg.Groq.Configured() {
				clients = append(clients, NewGroqClientWithConfig(GroqConfig{
					APIKey:  cfg.Groq.APIKey,
					BaseURL: cfg.Groq.BaseURL,
					Model:   cfg.Groq.Model,
					Timeout: cfg.Groq.TimeoutDuration(),
				}))
				logging.Boot("backend configured: groq model=%s", cfg.Groq.Model)
			}
		case ProviderOpenAI:
			if cfg.OpenAI.Configured() {
				clients = append(clients, NewOpenAIClientWithConfig(OpenAIConfig{
					APIKey:  cfg.OpenAI.APIKey,
					BaseURL: cfg.OpenAI.BaseURL,
					Model:   cfg.OpenAI.Model,
					Timeout: cfg.OpenAI.TimeoutDuration(),
				}))
				logging.Boot("backend configured: openai model=%s", cfg.OpenAI.Model)
			}
		case ProviderGemini:
			if cfg.Gemini.Configured() {
				client, err := NewGeminiClientWithConfig(GeminiConfig{
					APIKey:  cfg.Gemini.APIKey,
					Model:   cfg.Gemini.Model,
					Timeout: cfg.Gemini.TimeoutDuration(),
				})
				if err != nil {
					logging.Get(logging.CategoryBackend).Warn("gemini client init failed: %v", err)
					continue
				}
				clients = append(clients, client)
				logging.Boot("backend configured: gemini model=%s", cfg.Gemini.Model)
			}
		}
	}

	return &Chain{clients: clients}
}

// Available reports whether at least one provider is configured.
func (ch *Chain) Available() bool {
	return len(ch.clients) > 0
}

// Clients exposes the ordered provider list.
func (ch *Chain) Clients() []Client {
	return ch.clients
}

// Complete tries each provider in order and returns the first successful
// completion along with the client that served it. Returns ErrUnavailable
// when every provider fails or none is configured.
func (ch *Chain) Complete(ctx context.Context, req Request) (string, Client, error) {
	if len(ch.clients) == 0 {
		return "", nil, ErrUnavailable
	}

	var lastErr error
	for _, client := range ch.clients {
		text, err := client.Complete(ctx, req)
		if err != nil {
			logging.Get(logging.CategoryBackend).Warn("backend %s failed: %v", client.Name(), err)
			lastErr = err
			continue
		}
		return text, client, nil
	}

	return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
