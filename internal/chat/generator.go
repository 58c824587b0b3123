package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"piefitness/internal/backend"
	"piefitness/internal/logging"
)

// Budget bounds the size of one bot reply.
type Budget struct {
	MaxTokens       int
	DesiredMaxChars int
	EnforceConcise  bool
}

// ComputeBudget sizes the reply from the shape of the user message.
// Greetings and very short messages get tight budgets so replies stay
// to a line or two; real questions get room to answer properly.
func ComputeBudget(message string, catalog *Catalog) Budget {
	trimmed := strings.TrimSpace(message)
	words := len(strings.Fields(trimmed))
	if words == 0 {
		words = 1
	}
	chars := len(trimmed)

	isGreeting := catalog.Greeting.MatchString(trimmed)
	isQuestion := strings.Contains(trimmed, "?") || catalog.Question.MatchString(trimmed)

	switch {
	case isGreeting:
		return Budget{MaxTokens: 60, DesiredMaxChars: 200, EnforceConcise: true}
	case words <= 3:
		return Budget{MaxTokens: 120, DesiredMaxChars: 180, EnforceConcise: true}
	case !isQuestion && words <= 8:
		return Budget{MaxTokens: 180, DesiredMaxChars: 250, EnforceConcise: true}
	case isQuestion || words > 10:
		tokens := clamp(words*25, 500, 2000)
		return Budget{MaxTokens: tokens, DesiredMaxChars: minInt(4000, tokens*4)}
	default:
		tokens := clamp(chars*3, 300, 1200)
		return Budget{MaxTokens: tokens, DesiredMaxChars: minInt(2000, tokens*4)}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

const (
	firmRedirectPrompt = `You are PIE Fitness Assistant, a dedicated AI fitness coach. The user has been asking questions outside your expertise area (fitness, health, bodybuilding, nutrition, workouts).

IMPORTANT: You must politely but firmly redirect them back to fitness topics. Use this exact approach:
1. Acknowledge their question briefly but don't answer it
2. Explain you're specifically designed as a PIE Fitness Assistant
3. Motivate them toward fitness/health topics
4. Ask a specific fitness-related question to engage them

Be encouraging, motivational, and always redirect to fitness. Don't answer non-fitness questions.`

	gentleRedirectPrompt = `You are PIE Fitness Assistant, a friendly AI fitness coach. The user asked something outside fitness/health topics.

Respond warmly but redirect to fitness:
1. Briefly acknowledge their question without fully answering it
2. Introduce yourself as PIE Fitness Assistant
3. Gently steer toward fitness topics
4. Ask about their fitness interests

Keep it friendly and motivational, focusing on how fitness can improve their life.`

	fitnessPrompt = `You are PIE Fitness Assistant, a highly knowledgeable and motivational AI fitness coach. You specialize in workouts, nutrition, bodybuilding, health, supplements, and fitness motivation.

Key guidelines:
- Always finish your sentences completely. Never leave thoughts incomplete.
- Reply in the same language as the user's message
- For greetings: Be enthusiastic about fitness, introduce yourself as PIE Fitness Assistant
- For fitness questions: Provide comprehensive, expert advice with practical tips
- Be motivational and encouraging - remind users of the benefits of fitness
- Include specific actionable advice (sets, reps, timing, techniques)
- Relate everything back to achieving their fitness transformation
- If uncertain about medical issues, recommend consulting healthcare professionals

Your personality: Enthusiastic, knowledgeable, motivational, like a personal trainer who genuinely cares about results.`
)

// BuildSystemPrompt selects the scope-appropriate instruction prompt
// and appends the per-user context block.
func BuildSystemPrompt(scope ScopeResult, ctx Context) string {
	var base string
	switch {
	case scope.IsOffTopic && scope.ConsecutiveOffTopic >= redirectThreshold:
		base = firmRedirectPrompt
	case scope.IsOffTopic:
		base = gentleRedirectPrompt
	default:
		base = fitnessPrompt
	}

	level := ctx.FitnessLevel
	if level == "" {
		level = "unknown"
	}
	goals := strings.Join(ctx.FitnessGoals, ", ")
	if goals == "" {
		goals = "general fitness"
	}
	topic := ctx.CurrentTopic
	if topic == "" {
		topic = "general"
	}

	return base + fmt.Sprintf(`

Current user context:
- Fitness Level: %s
- Goals: %s
- Current Topic: %s
- Off-topic streak: %d/3`, level, goals, topic, scope.ConsecutiveOffTopic)
}

// Reply is one generated bot turn with everything needed to persist it.
type Reply struct {
	Text          string
	Metadata      BotMetadata
	ContextUpdate ContextUpdate
}

// Generator turns an analyzed user message into a bot reply, trying
// the backend chain first and falling back to canned rules.
type Generator struct {
	Chain         *backend.Chain
	Catalogs      *CatalogHolder
	Suggest       *SuggestionEngine
	Rules         RuleResponder
	HistoryWindow int
}

// NewGenerator wires a generator with a six-message history window.
func NewGenerator(chain *backend.Chain, catalogs *CatalogHolder, suggest *SuggestionEngine) *Generator {
	return &Generator{
		Chain:         chain,
		Catalogs:      catalogs,
		Suggest:       suggest,
		HistoryWindow: 6,
	}
}

const (
	confidenceAI       = 0.95
	confidenceApology  = 0.1
	suggestionMetaCap  = 20
	intentOffTopic     = "off_topic"
	modelRuleBased     = "rule-based"
	modelErrorFallback = "error-fallback"
)

// Generate produces the bot reply for one user turn. Backend failures
// degrade to the rule-based responder; only a panic-grade internal
// error produces the apology reply.
func (g *Generator) Generate(ctx context.Context, userMessage string, conv *Conversation, analysis Analysis, scope ScopeResult) (reply Reply) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Backend("reply generation failed: %v", r)
			reply = ApologyReply(start)
			reply.ContextUpdate.ConsecutiveOffTopic = scope.ConsecutiveOffTopic
		}
	}()
	catalog := g.Catalogs.Get()

	text, model, aiPowered := g.respond(ctx, userMessage, conv, analysis, scope, catalog)

	var suggestions []string
	if scope.ShouldRedirect || scope.IsOffTopic {
		suggestions = g.Suggest.Motivational()
	} else {
		suggestions = g.Suggest.ForTopic(string(analysis.Intent))
	}
	if len(suggestions) > suggestionMetaCap {
		suggestions = suggestions[:suggestionMetaCap]
	}

	intent := string(analysis.Intent)
	if scope.IsOffTopic {
		intent = intentOffTopic
	}
	confidence := analysis.Confidence
	if aiPowered {
		confidence = confidenceAI
	}

	newTopic := intent
	previous := append(append([]string{}, conv.Context.PreviousTopics...), string(analysis.Intent))
	if len(previous) > 5 {
		previous = previous[len(previous)-5:]
	}
	fitnessCount := conv.Context.FitnessRelatedCount
	if scope.IsFitnessRelated {
		fitnessCount++
	}

	return Reply{
		Text: text,
		Metadata: BotMetadata{
			ResponseTimeMs:   time.Since(start).Milliseconds(),
			Confidence:       confidence,
			Intent:           intent,
			Entities:         analysis.Entities,
			SuggestedActions: suggestions,
			AIPowered:        aiPowered,
			Model:            model,
		},
		ContextUpdate: ContextUpdate{
			CurrentTopic:        newTopic,
			PreviousTopics:      previous,
			ConversationStage:   StageForMessageCount(len(conv.Messages)),
			LastBotSuggestions:  suggestions,
			ConsecutiveOffTopic: scope.ConsecutiveOffTopic,
			FitnessRelatedCount: fitnessCount,
		},
	}
}

func (g *Generator) respond(ctx context.Context, userMessage string, conv *Conversation, analysis Analysis, scope ScopeResult, catalog *Catalog) (text, model string, aiPowered bool) {
	if g.Chain != nil && g.Chain.Available() {
		reply, client, err := g.complete(ctx, userMessage, conv, scope, catalog)
		if err == nil {
			return reply, client.Model(), true
		}
		logging.Backend("falling back to rule-based response: %v", err)
	}
	return g.Rules.Respond(analysis, scope, conv), modelRuleBased, false
}

func (g *Generator) complete(ctx context.Context, userMessage string, conv *Conversation, scope ScopeResult, catalog *Catalog) (string, backend.Client, error) {
	budget := ComputeBudget(userMessage, catalog)

	msgs := make([]backend.Message, 0, g.HistoryWindow+1)
	for _, m := range conv.RecentMessages(g.HistoryWindow) {
		role := "user"
		if m.Sender == SenderBot {
			role = "assistant"
		}
		msgs = append(msgs, backend.Message{Role: role, Content: m.Text})
	}
	msgs = append(msgs, backend.Message{Role: "user", Content: userMessage})

	reply, client, err := g.Chain.Complete(ctx, backend.Request{
		System:    BuildSystemPrompt(scope, conv.Context),
		Messages:  msgs,
		MaxTokens: budget.MaxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", nil, fmt.Errorf("empty response from %s", client.Name())
	}

	if catalog.LooksTruncated(reply) {
		logging.BackendDebug("reply looks truncated (%d chars), requesting continuation", len(reply))
		reply = RepairTruncation(ctx, g.Chain, catalog, reply)
	}
	if budget.EnforceConcise {
		reply = EnforceConcise(catalog, reply, budget.DesiredMaxChars, true)
	}
	return reply, client, nil
}

// ApologyReply is the last-resort response when reply generation
// itself fails.
func ApologyReply(start time.Time) Reply {
	return Reply{
		Text: "I'm sorry, I'm having trouble processing your request right now. As your PIE Fitness Assistant, I'm here to help with all your fitness and health questions. What fitness goal can I help you achieve today?",
		Metadata: BotMetadata{
			ResponseTimeMs:   time.Since(start).Milliseconds(),
			Confidence:       confidenceApology,
			Intent:           string(IntentError),
			Entities:         []Entity{},
			SuggestedActions: []string{"Ask about workouts", "Ask about nutrition", "Ask about supplements"},
			AIPowered:        false,
			Model:            modelErrorFallback,
		},
	}
}
