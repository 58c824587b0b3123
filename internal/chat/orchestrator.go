package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"piefitness/internal/logging"
)

// Store is the conversation persistence contract. FindBySessionID
// returns (nil, nil) when no conversation exists for the session.
type Store interface {
	FindBySessionID(ctx context.Context, sessionID string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	ListActive(ctx context.Context, userID string, limit int) ([]*Conversation, error)
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Service drives the message pipeline: scope analysis, response
// generation, chunked persistence, and suggestion/feedback operations.
type Service struct {
	store     Store
	scope     *ScopeAnalyzer
	generator *Generator
	suggest   *SuggestionEngine
	catalogs  *CatalogHolder

	// MaxMessageLen bounds incoming user messages and the size of a
	// stored bot chunk.
	MaxMessageLen int

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the orchestrator.
func NewService(store Store, catalogs *CatalogHolder, generator *Generator, suggest *SuggestionEngine) *Service {
	return &Service{
		store:         store,
		scope:         NewScopeAnalyzer(catalogs),
		generator:     generator,
		suggest:       suggest,
		catalogs:      catalogs,
		MaxMessageLen: MaxMessageLen,
		locks:         make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing writes for one session.
// Turns on the same session run one at a time; distinct sessions never
// contend.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// ConversationView is a conversation prepared for API output: recent
// messages with multipart bot replies coalesced.
type ConversationView struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	Context      Context   `json:"context"`
	Analytics    Analytics `json:"analytics"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

func viewOf(conv *Conversation) *ConversationView {
	recent := conv.RecentMessages(50)
	coalesced := CoalesceMessages(recent)
	if len(coalesced) > 20 {
		coalesced = coalesced[len(coalesced)-20:]
	}
	return &ConversationView{
		ID:           conv.ID,
		SessionID:    conv.SessionID,
		Title:        conv.Title,
		Messages:     coalesced,
		Context:      conv.Context,
		Analytics:    conv.Analytics,
		CreatedAt:    conv.CreatedAt,
		LastActivity: conv.LastActivity,
	}
}

// GetOrCreate returns the conversation for a session, creating and
// persisting a fresh one (greeting message included) when absent.
// Concurrent creations for the same session are deduplicated.
func (s *Service) GetOrCreate(ctx context.Context, sessionID, userID string) (*ConversationView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	conv, err := s.store.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		v, err, _ := s.group.Do(sessionID, func() (any, error) {
			existing, err := s.store.FindBySessionID(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return existing, nil
			}
			fresh := NewConversation(sessionID, userID)
			if err := s.store.Save(ctx, fresh); err != nil {
				return nil, err
			}
			logging.Chat("created conversation %s for session %s", fresh.ID, sessionID)
			return fresh, nil
		})
		if err != nil {
			return nil, err
		}
		conv = v.(*Conversation)
	}
	return viewOf(conv), nil
}

// SendResult is the outcome of one user turn: the stored user message
// and the bot reply (merged when it was chunked for storage).
type SendResult struct {
	Messages  []Message `json:"messages"`
	Context   Context   `json:"context"`
	Analytics Analytics `json:"analytics"`
}

// SendMessage runs the full pipeline for one user turn.
func (s *Service) SendMessage(ctx context.Context, sessionID, userID, text string) (*SendResult, error) {
	trimmed := strings.TrimSpace(text)
	if strings.TrimSpace(sessionID) == "" || trimmed == "" {
		return nil, fmt.Errorf("%w: session id and message are required", ErrInvalidInput)
	}
	maxLen := s.MaxMessageLen
	if maxLen <= 0 {
		maxLen = MaxMessageLen
	}
	if len(trimmed) > maxLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, maxLen)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		conv = NewConversation(sessionID, userID)
	}

	userMsg := conv.AddMessage(Message{Text: trimmed, Sender: SenderUser})

	scope := s.scope.Classify(trimmed, conv.Context.ConsecutiveOffTopic)
	analysis := Analyze(trimmed, conv.Context)
	reply := s.generator.Generate(ctx, trimmed, conv, analysis, scope)

	catalog := s.catalogs.Get()
	chunks := SplitTextIntoChunks(reply.Text, maxLen, catalog.Sentences)
	if len(chunks) == 0 {
		chunks = []string{reply.Text}
	}
	total := len(chunks)

	botMsgs := make([]Message, 0, total)
	for i, chunk := range chunks {
		meta := reply.Metadata
		if total > 1 {
			meta.Truncated = true
			meta.Part = i + 1
			meta.TotalParts = total
		}
		botMsgs = append(botMsgs, conv.AddMessage(Message{
			Text:     chunk,
			Sender:   SenderBot,
			Metadata: &meta,
		}))
	}

	conv.ApplyContextUpdate(reply.ContextUpdate)
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	logging.Chat("session %s: %d user chars in, %d bot chunks out (intent=%s ai=%t)",
		sessionID, len(trimmed), total, reply.Metadata.Intent, reply.Metadata.AIPowered)

	out := []Message{userMsg}
	if total == 1 {
		out = append(out, botMsgs[0])
	} else {
		out = append(out, CoalesceMessages(botMsgs)...)
	}

	return &SendResult{
		Messages:  out,
		Context:   conv.Context,
		Analytics: conv.Analytics,
	}, nil
}

const suggestionAPICap = 25

// Suggestions returns the ranked follow-up prompts for a session's
// current topic, capped for API output. A caller-supplied topic takes
// precedence over the stored conversation topic; unknown sessions get
// the general catalog.
func (s *Service) Suggestions(ctx context.Context, sessionID, topic string) ([]string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if topic == "" {
		conv, err := s.store.FindBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			topic = conv.Context.CurrentTopic
		}
	}
	suggestions := s.suggest.ForTopic(topic)
	if len(suggestions) > suggestionAPICap {
		suggestions = suggestions[:suggestionAPICap]
	}
	return suggestions, nil
}

// History returns conversation summaries, newest first. A session id
// narrows it to that single conversation (empty list when absent); a
// user id narrows the listing to that user; with neither, every active
// conversation is listed.
func (s *Service) History(ctx context.Context, sessionID, userID string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	if strings.TrimSpace(sessionID) != "" {
		conv, err := s.store.FindBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return []Summary{}, nil
		}
		return []Summary{conv.Summarize()}, nil
	}

	convs, err := s.store.ListActive(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(convs))
	for _, c := range convs {
		summaries = append(summaries, c.Summarize())
	}
	return summaries, nil
}

// Feedback records user feedback on a single bot message. Fields left
// nil or empty keep their stored values.
func (s *Service) Feedback(ctx context.Context, sessionID, messageID string, helpful *bool, rating *int, comment string) error {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("%w: session id and message id are required", ErrInvalidInput)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("%w: conversation for session %s", ErrNotFound, sessionID)
	}
	msg := conv.FindMessage(messageID)
	if msg == nil {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if msg.Feedback == nil {
		msg.Feedback = &Feedback{}
	}
	if helpful != nil {
		msg.Feedback.Helpful = helpful
	}
	if rating != nil {
		msg.Feedback.Rating = rating
	}
	if comment != "" {
		msg.Feedback.Comment = comment
	}

	return s.store.Save(ctx, conv)
}

// ArchiveOldConversations marks conversations idle past the cutoff as
// archived and inactive.
func (s *Service) ArchiveOldConversations(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.ArchiveOlderThan(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Chat("archived %d idle conversations", n)
	}
	return n, nil
}

// Healthy reports whether the persistence layer is reachable.
func (s *Service) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}
