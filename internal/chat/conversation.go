// Package chat implements the conversational fitness assistant
// orchestrator: per-session conversation state, topical scope analysis
// with off-topic escalation, model-backed response generation with a
// deterministic rule-based fallback, chunked storage of long replies,
// and context-aware follow-up suggestions.
package chat

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Stage is the coarse conversation phase, monotone in message count.
type Stage string

const (
	StageGreeting       Stage = "greeting"
	StageAssessment     Stage = "assessment"
	StageRecommendation Stage = "recommendation"
	StageFollowUp       Stage = "follow_up"
	StageClosing        Stage = "closing"
)

var stageOrder = map[Stage]int{
	StageGreeting:       0,
	StageAssessment:     1,
	StageRecommendation: 2,
	StageFollowUp:       3,
	StageClosing:        4,
}

// StageForMessageCount maps total message count to a conversation stage.
func StageForMessageCount(n int) Stage {
	switch {
	case n <= 2:
		return StageGreeting
	case n <= 5:
		return StageAssessment
	case n <= 10:
		return StageRecommendation
	case n <= 15:
		return StageFollowUp
	default:
		return StageClosing
	}
}

// Entity is a typed fragment extracted from an utterance.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// BotMetadata carries generation details for bot messages.
type BotMetadata struct {
	ResponseTimeMs   int64    `json:"responseTime,omitempty"`
	Confidence       float64  `json:"confidence,omitempty"`
	Intent           string   `json:"intent,omitempty"`
	Entities         []Entity `json:"entities,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	AIPowered        bool     `json:"aiPowered"`
	Model            string   `json:"model,omitempty"`

	// Chunking: set only when the message is one physical part of a
	// longer logical reply.
	Truncated  bool `json:"truncated,omitempty"`
	Part       int  `json:"part,omitempty"`
	TotalParts int  `json:"totalParts,omitempty"`

	// Coalesced view only.
	Merged bool     `json:"merged,omitempty"`
	Parts  []string `json:"parts,omitempty"`
}

// Feedback is user feedback attached to a bot message.
type Feedback struct {
	Helpful *bool  `json:"helpful,omitempty"`
	Rating  *int   `json:"rating,omitempty"` // 1-5
	Comment string `json:"comment,omitempty"`
}

// Message is one stored message. Immutable once appended, except for
// attached feedback.
type Message struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Sender    Sender       `json:"sender"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  *BotMetadata `json:"metadata,omitempty"`
	Feedback  *Feedback    `json:"feedback,omitempty"`
}

// Context is the mutable per-conversation state.
type Context struct {
	FitnessLevel        string   `json:"fitnessLevel,omitempty"` // beginner, intermediate, advanced, unknown
	FitnessGoals        []string `json:"fitnessGoals,omitempty"`
	CurrentTopic        string   `json:"currentTopic,omitempty"`
	PreviousTopics      []string `json:"previousTopics,omitempty"` // bounded to last 5
	LastBotSuggestions  []string `json:"lastBotSuggestions,omitempty"`
	ConversationStage   Stage    `json:"conversationStage,omitempty"`
	ConsecutiveOffTopic int      `json:"consecutiveOffTopicCount"`
	FitnessRelatedCount int      `json:"fitnessRelatedCount"`
}

// Analytics is derived state, recomputed on every append.
type Analytics struct {
	TotalMessages   int      `json:"totalMessages"`
	DurationMinutes int      `json:"conversationDuration"`
	TopicsDiscussed []string `json:"topicsDiscussed,omitempty"`
}

// Conversation is the full persisted dialogue for one session.
type Conversation struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId,omitempty"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	Context      Context   `json:"context"`
	Analytics    Analytics `json:"analytics"`
	IsActive     bool      `json:"isActive"`
	IsArchived   bool      `json:"isArchived"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// ContextUpdate is the set of context changes produced by one turn.
type ContextUpdate struct {
	CurrentTopic        string
	PreviousTopics      []string
	ConversationStage   Stage
	LastBotSuggestions  []string
	ConsecutiveOffTopic int
	FitnessRelatedCount int
}

// NewConversation creates a conversation bootstrapped with the greeting
// bot message and the initial suggestion set.
func NewConversation(sessionID, userID string) *Conversation {
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Title:     "Fitness Chat",
		Context: Context{
			FitnessLevel:      "unknown",
			CurrentTopic:      "general",
			ConversationStage: StageGreeting,
		},
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}

	conv.AddMessage(Message{
		Text:   "Hi! I'm your PieFitness AI assistant. I'm here to help you with workout plans, nutrition advice, and fitness tips. How can I help you today?",
		Sender: SenderBot,
		Metadata: &BotMetadata{
			Intent:           "greeting",
			Confidence:       1.0,
			SuggestedActions: InitialSuggestions(),
		},
	})

	return conv
}

// AddMessage appends a message, assigning id and timestamp, and
// recomputes analytics. Returns the stored message.
func (c *Conversation) AddMessage(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.Messages = append(c.Messages, msg)
	c.recomputeAnalytics()
	c.LastActivity = msg.Timestamp
	return msg
}

// RecentMessages returns up to the last n messages.
func (c *Conversation) RecentMessages(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// UserMessages returns all user-sent messages.
func (c *Conversation) UserMessages() []Message {
	var out []Message
	for _, m := range c.Messages {
		if m.Sender == SenderUser {
			out = append(out, m)
		}
	}
	return out
}

// FindMessage returns a pointer to the message with the given id, or nil.
func (c *Conversation) FindMessage(messageID string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return &c.Messages[i]
		}
	}
	return nil
}

// ApplyContextUpdate merges a turn's context changes. The conversation
// stage never regresses; topic strings are normalized to canonical
// snake_case form.
func (c *Conversation) ApplyContextUpdate(u ContextUpdate) {
	if u.CurrentTopic != "" {
		c.Context.CurrentTopic = NormalizeTopic(u.CurrentTopic)
	}
	if u.PreviousTopics != nil {
		topics := u.PreviousTopics
		if len(topics) > 5 {
			topics = topics[len(topics)-5:]
		}
		c.Context.PreviousTopics = topics
	}
	if u.ConversationStage != "" {
		if stageOrder[u.ConversationStage] >= stageOrder[c.Context.ConversationStage] {
			c.Context.ConversationStage = u.ConversationStage
		}
	}
	if u.LastBotSuggestions != nil {
		c.Context.LastBotSuggestions = u.LastBotSuggestions
	}
	c.Context.ConsecutiveOffTopic = u.ConsecutiveOffTopic
	if u.FitnessRelatedCount > 0 {
		c.Context.FitnessRelatedCount = u.FitnessRelatedCount
	}
}

// recomputeAnalytics rebuilds the derived analytics from the message
// sequence. totalMessages always equals len(messages) afterwards.
func (c *Conversation) recomputeAnalytics() {
	c.Analytics.TotalMessages = len(c.Messages)

	if len(c.Messages) > 1 {
		first := c.Messages[0].Timestamp
		last := c.Messages[len(c.Messages)-1].Timestamp
		c.Analytics.DurationMinutes = int(last.Sub(first).Round(time.Minute) / time.Minute)
	}

	seen := make(map[string]bool)
	var topics []string
	for _, m := range c.Messages {
		if m.Metadata != nil && m.Metadata.Intent != "" && !seen[m.Metadata.Intent] {
			seen[m.Metadata.Intent] = true
			topics = append(topics, m.Metadata.Intent)
		}
	}
	c.Analytics.TopicsDiscussed = topics
}

// Summary is the compact conversation listing used by history queries.
type Summary struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	LastActivity time.Time `json:"lastActivity"`
	CurrentTopic string    `json:"currentTopic"`
	Duration     int       `json:"duration"`
}

// Summarize builds the history listing for this conversation.
func (c *Conversation) Summarize() Summary {
	return Summary{
		ID:           c.ID,
		SessionID:    c.SessionID,
		Title:        c.Title,
		MessageCount: c.Analytics.TotalMessages,
		LastActivity: c.LastActivity,
		CurrentTopic: c.Context.CurrentTopic,
		Duration:     c.Analytics.DurationMinutes,
	}
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// NormalizeTopic converts free-form topic strings (camelCase, mixed
// casing) to a canonical snake_case lowercase form so downstream lookup
// stays total.
func NormalizeTopic(topic string) string {
	if topic == "" {
		return "general"
	}
	snake := camelBoundary.ReplaceAllString(topic, "${1}_${2}")
	snake = strings.ReplaceAll(snake, "-", "_")
	snake = strings.ReplaceAll(snake, " ", "_")
	return strings.ToLower(snake)
}
