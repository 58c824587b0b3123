package chat

import (
	"strings"

	"piefitness/internal/logging"
)

// ScopeResult classifies one utterance against the assistant's domain.
type ScopeResult struct {
	IsGreeting          bool
	IsFitnessRelated    bool
	IsOffTopic          bool
	ConsecutiveOffTopic int
	ShouldRedirect      bool
}

// redirectThreshold is the off-topic streak at which the assistant
// switches from a gentle to a firm redirect. One ambiguous utterance
// never triggers a hard redirect.
const redirectThreshold = 2

// ScopeAnalyzer classifies utterances and tracks the off-topic streak.
type ScopeAnalyzer struct {
	catalogs *CatalogHolder
}

// NewScopeAnalyzer builds an analyzer over a catalog holder.
func NewScopeAnalyzer(catalogs *CatalogHolder) *ScopeAnalyzer {
	return &ScopeAnalyzer{catalogs: catalogs}
}

// Classify evaluates one utterance given the prior off-topic streak.
//
// Off-topic requires a positive match against the unrelated-domain
// catalog; mere absence of fitness vocabulary leaves the streak
// unchanged. Greetings never move the streak. Fitness-related
// utterances reset it.
func (a *ScopeAnalyzer) Classify(utterance string, priorOffTopic int) ScopeResult {
	c := a.catalogs.Get()

	isFitness := c.Fitness.MatchString(utterance) || c.Health.MatchString(utterance)
	isGreeting := c.Greeting.MatchString(strings.TrimSpace(utterance))

	isOffTopic := false
	if !isFitness && !isGreeting {
		for _, p := range c.OffTopic {
			if p.MatchString(utterance) {
				isOffTopic = true
				break
			}
		}
	}

	count := priorOffTopic
	switch {
	case isOffTopic:
		count = priorOffTopic + 1
	case isFitness:
		count = 0
	}
	// Greetings and unclassified neutral text keep the streak unchanged.

	result := ScopeResult{
		IsGreeting:          isGreeting,
		IsFitnessRelated:    isFitness,
		IsOffTopic:          isOffTopic,
		ConsecutiveOffTopic: count,
		ShouldRedirect:      count >= redirectThreshold,
	}

	logging.ScopeDebug("classify: greeting=%v fitness=%v offtopic=%v streak=%d redirect=%v",
		result.IsGreeting, result.IsFitnessRelated, result.IsOffTopic, result.ConsecutiveOffTopic, result.ShouldRedirect)

	return result
}
