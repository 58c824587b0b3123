package chat

import (
	"regexp"
	"strings"
)

// SuggestionEngine maps a topic to a ranked, de-duplicated list of
// follow-up prompts.
type SuggestionEngine struct{}

// NewSuggestionEngine returns the curated suggestion catalog.
func NewSuggestionEngine() *SuggestionEngine {
	return &SuggestionEngine{}
}

// Canonical suggestion topic keys.
const (
	topicWeightLoss  = "weight_loss"
	topicMuscleGain  = "muscle_gain"
	topicNutrition   = "nutrition"
	topicSupplements = "supplements"
	topicWorkout     = "workout"
	topicGeneral     = "general"
)

var (
	weightLossHint  = regexp.MustCompile(`weight|fat|cut|lose`)
	muscleGainHint  = regexp.MustCompile(`muscle|bulk|mass|hypertrophy`)
	nutritionHint   = regexp.MustCompile(`nutri|diet|calorie|macro|food`)
	supplementsHint = regexp.MustCompile(`supplement|protein|creatine|omega|vitamin|probiotic`)
	workoutHint     = regexp.MustCompile(`workout|exercise|training|routine|split|gym|fitness`)
)

// NormalizeTopicKey folds arbitrary topic spellings (camelCase,
// snake_case, hyphenated) onto one of the curated suggestion keys.
func NormalizeTopicKey(topic string) string {
	if topic == "" {
		return topicGeneral
	}
	s := NormalizeTopic(topic)
	s = strings.ReplaceAll(s, "_", " ")
	switch {
	case weightLossHint.MatchString(s):
		return topicWeightLoss
	case muscleGainHint.MatchString(s):
		return topicMuscleGain
	case nutritionHint.MatchString(s):
		return topicNutrition
	case supplementsHint.MatchString(s):
		return topicSupplements
	case workoutHint.MatchString(s):
		return topicWorkout
	}
	return topicGeneral
}

var topicSuggestions = map[string][]string{
	topicWorkout: {
		"Suggest me a 4-day workout split",
		"Recommend a beginner home workout routine",
		"What is the best workout split for beginners?",
		"How many sets and reps should I do?",
		"How often should I change my routine?",
		"Suggest ways to increase workout intensity",
		"What is the ideal workout duration for results?",
		"Advice for preventing workout injuries",
		"How can I improve my workout recovery?",
		"Explain progressive overload in training",
		"Give tips for staying motivated with exercise",
	},
	topicNutrition: {
		"What is the best diet for muscle gain?",
		"How do I lose weight effectively?",
		"How much protein do I need per day?",
		"Share a sample meal plan for muscle building",
		"What foods should I avoid for fat loss?",
		"How do I track my calorie intake?",
		"What are the top mistakes people make while dieting?",
		"How to meal prep for busy schedules",
		"What are healthy snack options?",
		"Timing nutrition around workouts",
	},
	topicSupplements: {
		"What supplements should I take?",
		"Do I really need protein powder?",
		"When should I take creatine?",
		"Are pre-workouts necessary?",
		"Best supplements for recovery",
		"Omega-3 vs fish oil: what to choose?",
		"Are multivitamins useful for athletes?",
		"How to choose a quality supplement brand",
		"Probiotics: benefits and sources",
	},
	topicWeightLoss: {
		"How do I lose weight effectively?",
		"How fast should I lose weight?",
		"Best cardio for fat loss",
		"Should I do weights while cutting?",
		"How to avoid losing muscle while dieting",
		"What are low-calorie high-volume foods?",
		"How to maintain energy while in a calorie deficit",
		"What are the best cardio exercises for fat loss?",
	},
	topicMuscleGain: {
		"How much weight should I gain per week?",
		"Best exercises for mass building",
		"How important is post-workout nutrition?",
		"Should I bulk or stay lean?",
		"How to structure a hypertrophy program",
		"How to progressively overload for muscle",
		"How do I track my muscle-building progress?",
	},
	topicGeneral: {
		"Suggest me a 4-day workout split",
		"What is the best diet for muscle gain?",
		"How do I lose weight effectively?",
		"What supplements should I take?",
		"Give tips for staying motivated with exercise",
		"How do I build healthy habits around food and exercise?",
		"What are the benefits of stretching regularly?",
		"How do I track my fitness progress?",
	},
}

// ForTopic returns the ranked suggestion list for a topic: the curated
// per-topic list followed by the general catalog, de-duplicated in
// first-seen order.
func (e *SuggestionEngine) ForTopic(topic string) []string {
	key := NormalizeTopicKey(topic)
	merged := append([]string{}, topicSuggestions[key]...)
	merged = append(merged, topicSuggestions[topicGeneral]...)
	return dedupe(merged)
}

// Motivational returns the fixed motivational catalog used when scope
// analysis signals a redirect.
func (e *SuggestionEngine) Motivational() []string {
	return []string{
		"What's the best workout for beginners?",
		"How do I build muscle fast?",
		"Create a fat loss meal plan for me",
		"What supplements should I take?",
		"How to stay motivated in fitness?",
		"Best exercises for building strength",
		"How to lose belly fat effectively?",
		"Design a home workout routine",
		"What's the perfect diet for muscle gain?",
		"How to improve my squat form?",
		"Best cardio for fat burning",
		"How to build bigger arms?",
		"Create a weekly workout schedule",
		"What are macros and how to track them?",
		"How to overcome fitness plateaus?",
	}
}

// InitialSuggestions is the large suggestion set attached to the
// greeting message of a fresh conversation.
func InitialSuggestions() []string {
	e := SuggestionEngine{}
	merged := append([]string{}, topicSuggestions[topicGeneral]...)
	merged = append(merged, topicSuggestions[topicWorkout]...)
	merged = append(merged, topicSuggestions[topicNutrition]...)
	merged = append(merged, e.Motivational()...)
	return dedupe(merged)
}

// dedupe removes duplicate entries while preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		k := strings.TrimSpace(s)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
