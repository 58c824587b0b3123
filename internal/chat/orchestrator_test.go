package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// memoryStore is an in-memory Store for pipeline tests.
type memoryStore struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{convs: make(map[string]*Conversation)}
}

func (m *memoryStore) FindBySessionID(ctx context.Context, sessionID string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[sessionID]
	if !ok {
		return nil, nil
	}
	clone := *conv
	clone.Messages = append([]Message{}, conv.Messages...)
	return &clone, nil
}

func (m *memoryStore) Save(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *conv
	clone.Messages = append([]Message{}, conv.Messages...)
	m.convs[conv.SessionID] = &clone
	m.saves++
	return nil
}

func (m *memoryStore) ListActive(ctx context.Context, userID string, limit int) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Conversation
	for _, c := range m.convs {
		if (userID == "" || c.UserID == userID) && c.IsActive && !c.IsArchived {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.convs {
		if c.LastActivity.Before(cutoff) && !c.IsArchived {
			c.IsArchived = true
			c.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Ping(ctx context.Context) error { return nil }

func newTestService(store Store) *Service {
	catalogs := NewCatalogHolder(DefaultCatalog())
	suggest := NewSuggestionEngine()
	generator := NewGenerator(nil, catalogs, suggest)
	return NewService(store, catalogs, generator, suggest)
}

func TestGetOrCreateBootstrapsConversation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	view, err := svc.GetOrCreate(context.Background(), "sess-1", "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if view.SessionID != "sess-1" {
		t.Errorf("sessionId = %q", view.SessionID)
	}
	if len(view.Messages) != 1 || view.Messages[0].Sender != SenderBot {
		t.Fatalf("expected greeting bootstrap message, got %d messages", len(view.Messages))
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	first, err := svc.GetOrCreate(context.Background(), "sess-1", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.GetOrCreate(context.Background(), "sess-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("repeated calls created different conversations: %q vs %q", first.ID, second.ID)
	}
}

func TestGetOrCreateRequiresSessionID(t *testing.T) {
	svc := newTestService(newMemoryStore())
	_, err := svc.GetOrCreate(context.Background(), "   ", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendMessageFullPipeline(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	result, err := svc.SendMessage(context.Background(), "sess-1", "user-1", "suggest a workout routine")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("expected user + bot message, got %d", len(result.Messages))
	}
	if result.Messages[0].Sender != SenderUser || result.Messages[1].Sender != SenderBot {
		t.Errorf("message order wrong: %q then %q", result.Messages[0].Sender, result.Messages[1].Sender)
	}
	bot := result.Messages[1]
	if bot.Metadata == nil {
		t.Fatalf("bot message missing metadata")
	}
	if bot.Metadata.Model != "rule-based" {
		t.Errorf("model = %q, want rule-based with no backends", bot.Metadata.Model)
	}
	if result.Context.CurrentTopic != "workout" {
		t.Errorf("currentTopic = %q, want workout", result.Context.CurrentTopic)
	}

	saved, err := store.FindBySessionID(context.Background(), "sess-1")
	if err != nil || saved == nil {
		t.Fatalf("conversation not persisted: %v", err)
	}
	if saved.Analytics.TotalMessages != len(saved.Messages) {
		t.Errorf("analytics out of sync: %d vs %d", saved.Analytics.TotalMessages, len(saved.Messages))
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	if _, err := svc.SendMessage(context.Background(), "", "", "hello"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing session id: got %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), "s", "", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank message: got %v", err)
	}
	long := strings.Repeat("x", MaxMessageLen+1)
	if _, err := svc.SendMessage(context.Background(), "s", "", long); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("oversized message: got %v", err)
	}
}

func TestSendMessageConfiguredLimit(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	svc.MaxMessageLen = 120
	ctx := context.Background()

	long := strings.Repeat("x", 121)
	if _, err := svc.SendMessage(ctx, "sess-1", "", long); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("message over configured limit: got %v", err)
	}

	// Replies longer than the configured limit chunk for storage.
	if _, err := svc.SendMessage(ctx, "sess-1", "", "suggest a workout routine"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	conv, err := store.FindBySessionID(ctx, "sess-1")
	if err != nil || conv == nil {
		t.Fatalf("conversation missing: %v", err)
	}
	var parts int
	for _, m := range conv.Messages {
		if m.Sender == SenderBot && m.Metadata != nil && m.Metadata.TotalParts > 1 {
			if len(m.Text) > 120 {
				t.Errorf("chunk length %d exceeds configured limit", len(m.Text))
			}
			parts++
		}
	}
	if parts < 2 {
		t.Errorf("expected a multipart bot reply under a 120-char limit, got %d parts", parts)
	}
}

func TestSendMessageOffTopicEscalation(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	// First off-topic turn: gentle redirect, streak 1.
	r1, err := svc.SendMessage(ctx, "sess-1", "", "which movie should I watch?")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Context.ConsecutiveOffTopic != 1 {
		t.Errorf("streak after first off-topic = %d, want 1", r1.Context.ConsecutiveOffTopic)
	}

	// Second off-topic turn: firm redirect, streak 2.
	r2, err := svc.SendMessage(ctx, "sess-1", "", "and what about cricket scores?")
	if err != nil {
		t.Fatal(err)
	}
	if r2.Context.ConsecutiveOffTopic != 2 {
		t.Errorf("streak after second off-topic = %d, want 2", r2.Context.ConsecutiveOffTopic)
	}
	if !strings.Contains(r2.Messages[1].Text, "dedicated fitness companion") {
		t.Errorf("expected firm redirect, got %q", r2.Messages[1].Text)
	}

	// Fitness turn resets the streak.
	r3, err := svc.SendMessage(ctx, "sess-1", "", "ok, give me a workout plan")
	if err != nil {
		t.Fatal(err)
	}
	if r3.Context.ConsecutiveOffTopic != 0 {
		t.Errorf("streak after fitness turn = %d, want 0", r3.Context.ConsecutiveOffTopic)
	}
}

func TestSuggestionsCappedAndTopicAware(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "sess-1", "", "what should my diet look like?"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Suggestions(ctx, "sess-1", "")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) == 0 || len(got) > 25 {
		t.Errorf("suggestion count = %d, want 1..25", len(got))
	}
	if got[0] != "What is the best diet for muscle gain?" {
		t.Errorf("nutrition suggestions not ranked first: %q", got[0])
	}
}

func TestSuggestionsCallerTopicWins(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	// Stored topic is nutrition; the caller asks for weight loss.
	if _, err := svc.SendMessage(ctx, "sess-1", "", "what should my diet look like?"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Suggestions(ctx, "sess-1", "weight loss")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("no suggestions returned")
	}
	if got[0] != "How do I lose weight effectively?" {
		t.Errorf("caller topic ignored, first suggestion %q", got[0])
	}
}

func TestSuggestionsUnknownSessionUsesGeneral(t *testing.T) {
	svc := newTestService(newMemoryStore())
	got, err := svc.Suggestions(context.Background(), "never-seen", "")
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) == 0 {
		t.Errorf("unknown session should still get general suggestions")
	}
}

func TestFeedbackRoundTrip(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	result, err := svc.SendMessage(ctx, "sess-1", "", "suggest a workout routine")
	if err != nil {
		t.Fatal(err)
	}
	botID := result.Messages[1].ID

	helpful := true
	rating := 5
	if err := svc.Feedback(ctx, "sess-1", botID, &helpful, &rating, "great advice"); err != nil {
		t.Fatalf("Feedback: %v", err)
	}

	saved, _ := store.FindBySessionID(ctx, "sess-1")
	msg := saved.FindMessage(botID)
	if msg == nil || msg.Feedback == nil {
		t.Fatalf("feedback not persisted")
	}
	if msg.Feedback.Helpful == nil || !*msg.Feedback.Helpful {
		t.Errorf("helpful flag lost")
	}
	if msg.Feedback.Rating == nil || *msg.Feedback.Rating != 5 {
		t.Errorf("rating lost")
	}
	if msg.Feedback.Comment != "great advice" {
		t.Errorf("comment lost: %q", msg.Feedback.Comment)
	}
}

func TestFeedbackUnknownTargets(t *testing.T) {
	svc := newTestService(newMemoryStore())
	ctx := context.Background()

	if err := svc.Feedback(ctx, "absent", "m1", nil, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session: got %v", err)
	}

	if _, err := svc.SendMessage(ctx, "sess-1", "", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Feedback(ctx, "sess-1", "no-such-message", nil, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown message: got %v", err)
	}
}

func TestFeedbackRatingRange(t *testing.T) {
	svc := newTestService(newMemoryStore())
	bad := 9
	err := svc.Feedback(context.Background(), "sess-1", "m1", nil, &bad, "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("out-of-range rating: got %v", err)
	}
}

func TestHistoryReturnsSummaries(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "sess-1", "user-1", "suggest a workout routine"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(ctx, "sess-2", "user-1", "what about my diet?"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.History(ctx, "", "user-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("history returned %d conversations, want 2", len(got))
	}
	for _, s := range got {
		if s.MessageCount == 0 {
			t.Errorf("summary %q has no message count", s.SessionID)
		}
	}
}

func TestHistoryBySessionID(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "sess-1", "user-1", "suggest a workout routine"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(ctx, "sess-2", "user-2", "what about my diet?"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.History(ctx, "sess-2", "", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-2" {
		t.Fatalf("history for sess-2 returned %v, want the single sess-2 summary", got)
	}

	missing, err := svc.History(ctx, "sess-unknown", "", 10)
	if err != nil {
		t.Fatalf("History unknown session: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("unknown session returned %d conversations, want 0", len(missing))
	}
}

func TestHistoryWithoutUserIDListsAll(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "sess-1", "user-1", "suggest a workout routine"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(ctx, "sess-2", "", "what about my diet?"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.History(ctx, "", "", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("anonymous history returned %d conversations, want 2", len(got))
	}
}

func TestArchiveOldConversations(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "sess-old", "", "hello"); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	store.convs["sess-old"].LastActivity = time.Now().Add(-40 * 24 * time.Hour)
	store.mu.Unlock()

	n, err := svc.ArchiveOldConversations(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("ArchiveOldConversations: %v", err)
	}
	if n != 1 {
		t.Errorf("archived %d conversations, want 1", n)
	}
}

func TestConcurrentSendsOnOneSessionSerialize(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SendMessage(ctx, "sess-1", "", "suggest a workout routine"); err != nil {
				t.Errorf("SendMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	saved, _ := store.FindBySessionID(ctx, "sess-1")
	if saved == nil {
		t.Fatalf("conversation missing")
	}
	// 1 greeting + 8 user turns with one bot reply each.
	if got, want := len(saved.Messages), 1+16; got != want {
		t.Errorf("message count = %d, want %d (no turns may be lost)", got, want)
	}
	if saved.Analytics.TotalMessages != len(saved.Messages) {
		t.Errorf("analytics out of sync after concurrent sends")
	}
}
