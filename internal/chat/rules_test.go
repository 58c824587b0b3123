package chat

import (
	"strings"
	"testing"
)

func TestAnalyzeIntentDetection(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"Suggest a workout split for me", IntentWorkout},
		{"What should I eat before the gym?", IntentWorkout}, // gym matches first
		{"best diet for cutting", IntentNutrition},
		{"is whey worth buying?", IntentSupplements},
		{"I need motivation to keep going", IntentMotivation},
		{"hmm okay", IntentGeneral},
	}
	for _, tc := range cases {
		a := Analyze(tc.message, Context{})
		if a.Intent != tc.want {
			t.Errorf("Analyze(%q).Intent = %q, want %q", tc.message, a.Intent, tc.want)
		}
	}
}

func TestAnalyzeConfidenceLevels(t *testing.T) {
	matched := Analyze("give me a workout plan", Context{})
	if matched.Confidence != 0.8 {
		t.Errorf("matched confidence = %v, want 0.8", matched.Confidence)
	}

	inherited := Analyze("tell me more", Context{CurrentTopic: "nutrition"})
	if inherited.Intent != Intent("nutrition") {
		t.Errorf("inherited intent = %q, want nutrition", inherited.Intent)
	}
	if inherited.Confidence != 0.6 {
		t.Errorf("inherited confidence = %v, want 0.6", inherited.Confidence)
	}

	unmatched := Analyze("hmm okay", Context{})
	if unmatched.Confidence != 0.5 {
		t.Errorf("unmatched confidence = %v, want 0.5", unmatched.Confidence)
	}
}

func TestAnalyzeEntityExtraction(t *testing.T) {
	a := Analyze("I train chest and back 3 days a week with dumbbells", Context{})

	var bodyParts, timeFrames, equipment []string
	for _, e := range a.Entities {
		switch e.Type {
		case "bodyParts":
			bodyParts = append(bodyParts, e.Value)
		case "timeFrames":
			timeFrames = append(timeFrames, e.Value)
		case "equipment":
			equipment = append(equipment, e.Value)
		}
	}
	if len(bodyParts) != 2 {
		t.Errorf("bodyParts = %v, want chest and back", bodyParts)
	}
	if len(timeFrames) != 1 || !strings.Contains(timeFrames[0], "3") {
		t.Errorf("timeFrames = %v", timeFrames)
	}
	if len(equipment) != 1 {
		t.Errorf("equipment = %v, want dumbbell match", equipment)
	}
}

func TestRuleResponderOffTopicRedirects(t *testing.T) {
	conv := NewConversation("s", "")
	conv.AddMessage(Message{Text: "movies?", Sender: SenderUser})
	var r RuleResponder

	gentle := r.Respond(Analysis{Intent: IntentGeneral}, ScopeResult{IsOffTopic: true, ConsecutiveOffTopic: 1}, conv)
	firm := r.Respond(Analysis{Intent: IntentGeneral}, ScopeResult{IsOffTopic: true, ConsecutiveOffTopic: 2}, conv)

	if gentle == firm {
		t.Errorf("gentle and firm redirects must differ")
	}
	if !strings.Contains(firm, "dedicated fitness companion") {
		t.Errorf("firm redirect text missing: %q", firm)
	}
}

func TestRuleResponderWorkoutUsesFitnessLevel(t *testing.T) {
	conv := NewConversation("s", "")
	conv.Context.FitnessLevel = "beginner"
	conv.AddMessage(Message{Text: "q1", Sender: SenderUser})
	conv.AddMessage(Message{Text: "q2", Sender: SenderUser})
	var r RuleResponder

	got := r.Respond(Analysis{Intent: IntentWorkout}, ScopeResult{}, conv)
	if !strings.Contains(got, "3-day split") {
		t.Errorf("beginner advice not used: %q", got)
	}

	conv.Context.FitnessLevel = "unknown"
	got = r.Respond(Analysis{Intent: IntentWorkout}, ScopeResult{}, conv)
	if !strings.Contains(got, "4-day split") {
		t.Errorf("unknown level should fall back to intermediate: %q", got)
	}
}

func TestRuleResponderFirstInteractionWelcomes(t *testing.T) {
	conv := NewConversation("s", "")
	conv.AddMessage(Message{Text: "tell me about squats", Sender: SenderUser})
	var r RuleResponder

	got := r.Respond(Analysis{Intent: IntentWorkout}, ScopeResult{IsFitnessRelated: true}, conv)
	if !strings.Contains(got, "PIE Fitness Assistant") {
		t.Errorf("first interaction should introduce the assistant: %q", got)
	}
}

func TestRuleResponderFormWithBodyPart(t *testing.T) {
	conv := NewConversation("s", "")
	conv.AddMessage(Message{Text: "q1", Sender: SenderUser})
	conv.AddMessage(Message{Text: "q2", Sender: SenderUser})
	var r RuleResponder

	analysis := Analysis{
		Intent:   IntentForm,
		Entities: []Entity{{Type: "bodyParts", Value: "chest"}},
	}
	got := r.Respond(analysis, ScopeResult{}, conv)
	if !strings.Contains(got, "Bench press") {
		t.Errorf("chest form advice not used: %q", got)
	}
}
