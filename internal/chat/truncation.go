package chat

import (
	"context"
	"strings"

	"piefitness/internal/backend"
	"piefitness/internal/logging"
)

const truncationMinLen = 50

// LooksTruncated reports whether model output appears cut off
// mid-thought: long enough to matter, no terminal punctuation, and a
// trailing connector or known incomplete-phrase ending.
func (c *Catalog) LooksTruncated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= truncationMinLen {
		return false
	}
	if c.Terminal.MatchString(trimmed) {
		return false
	}
	return c.Connectors.MatchString(trimmed) || c.Incomplete.MatchString(trimmed)
}

// trailingFragment returns the partial sentence after the last terminal
// punctuation mark.
func (c *Catalog) trailingFragment(text string) string {
	parts := c.Sentences.FindAllString(strings.TrimSpace(text), -1)
	if len(parts) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

const repairSystemPrompt = "Complete the incomplete fitness advice naturally. Be helpful and finish the thought properly."

// RepairTruncation issues a single short continuation request and
// concatenates the result onto the original. Any failure leaves the
// original text untouched.
func RepairTruncation(ctx context.Context, chain *backend.Chain, catalog *Catalog, text string) string {
	fragment := catalog.trailingFragment(text)
	prompt := "Continue and complete this fitness advice response naturally in the same language. " +
		"The response was cut off mid-sentence.\n\n" +
		"Incomplete text: \"" + fragment + "\"\n\n" +
		"Complete the sentence and add a brief conclusion:"

	finish, client, err := chain.Complete(ctx, backend.Request{
		System:    repairSystemPrompt,
		Messages:  []backend.Message{{Role: "user", Content: prompt}},
		MaxTokens: 200,
	})
	if err != nil {
		logging.Backend("truncation repair failed: %v", err)
		return text
	}
	finish = strings.TrimSpace(finish)
	if len(finish) <= 5 {
		return text
	}
	logging.BackendDebug("truncation repaired via %s (+%d chars)", client.Name(), len(finish))

	junction := " "
	if strings.HasSuffix(text, " ") {
		junction = ""
	}
	return strings.TrimSpace(strings.TrimRight(text, "\n") + junction + finish)
}

// EnforceConcise trims text to maxChars at sentence boundaries,
// appending an ellipsis and a short elaboration offer when shortening
// was necessary.
func EnforceConcise(catalog *Catalog, text string, maxChars int, allowOffer bool) string {
	trimmed := strings.TrimSpace(text)
	if maxChars <= 0 || len(trimmed) <= maxChars {
		return trimmed
	}

	sentences := catalog.Sentences.FindAllString(trimmed, -1)
	if sentences == nil {
		sentences = []string{trimmed}
	}
	out := ""
	for _, s := range sentences {
		if len(strings.TrimSpace(out+s)) <= maxChars {
			out += s
			continue
		}
		break
	}
	if out == "" {
		out = strings.TrimSpace(trimmed[:maxChars])
	}
	out = strings.TrimSpace(out)

	if !catalog.Terminal.MatchString(out) {
		out = strings.TrimRight(out, ",:;- \t")
		if len(out)+3 <= maxChars {
			out += "..."
		}
	}
	if allowOffer {
		out += " If you want more details, ask me to elaborate."
	}
	return out
}
