package config

import "time"

// BackendsConfig configures the ordered LLM backend chain.
type BackendsConfig struct {
	// Preferred provider: groq, openai, gemini. The preferred provider is
	// tried first; remaining configured providers follow in default order.
	Preferred string `yaml:"preferred"`

	Groq   ProviderConfig `yaml:"groq"`
	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
}

// ProviderConfig holds per-provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses the provider timeout, defaulting to 30s.
func (p *ProviderConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Configured reports whether the provider has an API key set.
func (p *ProviderConfig) Configured() bool {
	return p.APIKey != "" && p.APIKey != "your_api_key_here"
}
