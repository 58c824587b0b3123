package chat

import "testing"

func TestNormalizeTopicKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"weightLoss", topicWeightLoss},
		{"weight_loss", topicWeightLoss},
		{"fat loss", topicWeightLoss},
		{"muscleGain", topicMuscleGain},
		{"hypertrophy", topicMuscleGain},
		{"nutrition", topicNutrition},
		{"supplements", topicSupplements},
		{"workout", topicWorkout},
		{"off_topic", topicGeneral},
		{"", topicGeneral},
	}
	for _, tc := range cases {
		if got := NormalizeTopicKey(tc.in); got != tc.want {
			t.Errorf("NormalizeTopicKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestForTopicMergesGeneralTail(t *testing.T) {
	e := NewSuggestionEngine()
	got := e.ForTopic("workout")
	if len(got) <= len(topicSuggestions[topicWorkout]) {
		t.Fatalf("general tail not merged: %d suggestions", len(got))
	}
	if got[0] != topicSuggestions[topicWorkout][0] {
		t.Errorf("topic suggestions must rank first, got %q", got[0])
	}
}

func TestForTopicDeduplicates(t *testing.T) {
	e := NewSuggestionEngine()
	got := e.ForTopic("nutrition")
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s] {
			t.Errorf("duplicate suggestion: %q", s)
		}
		seen[s] = true
	}
	// "How do I lose weight effectively?" appears in both the nutrition
	// and the general catalog; it must survive exactly once.
	if !seen["How do I lose weight effectively?"] {
		t.Errorf("shared suggestion missing entirely")
	}
}

func TestForTopicUnknownFallsBackToGeneral(t *testing.T) {
	e := NewSuggestionEngine()
	got := e.ForTopic("astrology")
	if len(got) != len(topicSuggestions[topicGeneral]) {
		t.Errorf("unknown topic should yield the general catalog, got %d suggestions", len(got))
	}
}

func TestMotivationalCatalogSize(t *testing.T) {
	e := NewSuggestionEngine()
	if got := len(e.Motivational()); got != 15 {
		t.Errorf("motivational catalog has %d entries, want 15", got)
	}
}

func TestInitialSuggestionsUniqueAndNonEmpty(t *testing.T) {
	got := InitialSuggestions()
	if len(got) == 0 {
		t.Fatalf("initial suggestions empty")
	}
	seen := map[string]bool{}
	for _, s := range got {
		if s == "" {
			t.Errorf("empty suggestion present")
		}
		if seen[s] {
			t.Errorf("duplicate initial suggestion: %q", s)
		}
		seen[s] = true
	}
}
