package backend

import (
	"context"
	"errors"
	"testing"

	"piefitness/internal/config"
)

type fakeClient struct {
	name  string
	reply string
	err   error
	calls int
}

func (c *fakeClient) Name() string  { return c.name }
func (c *fakeClient) Model() string { return c.name + "-model" }
func (c *fakeClient) Complete(ctx context.Context, req Request) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestChainEmptyUnavailable(t *testing.T) {
	ch := NewChain()
	if ch.Available() {
		t.Errorf("empty chain reported available")
	}
	_, _, err := ch.Complete(context.Background(), Request{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &fakeClient{name: "first", reply: "ok"}
	second := &fakeClient{name: "second", reply: "nope"}
	ch := NewChain(first, second)

	text, client, err := ch.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "ok" || client.Name() != "first" {
		t.Errorf("got %q from %q, want ok from first", text, client.Name())
	}
	if second.calls != 0 {
		t.Errorf("second provider should not be called on first success")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &fakeClient{name: "first", err: errors.New("rate limited")}
	second := &fakeClient{name: "second", reply: "saved"}
	ch := NewChain(first, second)

	text, client, err := ch.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "saved" || client.Name() != "second" {
		t.Errorf("fallback not used: %q from %q", text, client.Name())
	}
}

func TestChainAllFailuresWrapUnavailable(t *testing.T) {
	boom := errors.New("boom")
	ch := NewChain(&fakeClient{name: "a", err: boom}, &fakeClient{name: "b", err: boom})

	_, _, err := ch.Complete(context.Background(), Request{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable wrap, got %v", err)
	}
}

func TestNewChainFromConfigSkipsUnconfigured(t *testing.T) {
	ch := NewChainFromConfig(config.BackendsConfig{Preferred: "groq"})
	if ch.Available() {
		t.Errorf("chain with no API keys should be empty")
	}
}

func TestNewChainFromConfigHonorsPreferred(t *testing.T) {
	cfg := config.BackendsConfig{
		Preferred: "openai",
		Groq:      config.ProviderConfig{APIKey: "gk", Model: "llama-3.1-8b-instant", Timeout: "5s"},
		OpenAI:    config.ProviderConfig{APIKey: "ok", Model: "gpt-3.5-turbo", Timeout: "5s"},
	}
	ch := NewChainFromConfig(cfg)
	clients := ch.Clients()
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].Name() != string(ProviderOpenAI) {
		t.Errorf("preferred provider not first: %q", clients[0].Name())
	}
	if clients[1].Name() != string(ProviderGroq) {
		t.Errorf("remaining provider missing: %q", clients[1].Name())
	}
}

func TestNewChainFromConfigPlaceholderKeyIgnored(t *testing.T) {
	cfg := config.BackendsConfig{
		Groq: config.ProviderConfig{APIKey: "your_api_key_here"},
	}
	if NewChainFromConfig(cfg).Available() {
		t.Errorf("placeholder API key must not configure a provider")
	}
}
