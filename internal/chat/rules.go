package chat

import (
	"regexp"
	"strings"
)

// Intent is a coarse classification of a user utterance.
type Intent string

const (
	IntentWorkout     Intent = "workout"
	IntentNutrition   Intent = "nutrition"
	IntentSupplements Intent = "supplements"
	IntentWeightLoss  Intent = "weight_loss"
	IntentMuscleGain  Intent = "muscle_gain"
	IntentForm        Intent = "form"
	IntentMotivation  Intent = "motivation"
	IntentEquipment   Intent = "equipment"
	IntentBeginner    Intent = "beginner"
	IntentAdvanced    Intent = "advanced"
	IntentGeneral     Intent = "general"
	IntentError       Intent = "error"
	IntentGreeting    Intent = "greeting"
)

type intentRule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// Ordered: first match wins.
var intentRules = []intentRule{
	{IntentWorkout, regexp.MustCompile(`(?i)workout|exercise|train|split|routine|gym|fitness|muscle|strength`)},
	{IntentNutrition, regexp.MustCompile(`(?i)diet|nutrition|eat|food|meal|calorie|macro|protein|carb|fat`)},
	{IntentSupplements, regexp.MustCompile(`(?i)supplement|protein|creatine|vitamin|pre.?workout|bcaa|whey`)},
	{IntentWeightLoss, regexp.MustCompile(`(?i)lose weight|fat loss|cutting|slim|diet|cardio`)},
	{IntentMuscleGain, regexp.MustCompile(`(?i)muscle gain|bulk|mass|size|grow|build muscle`)},
	{IntentForm, regexp.MustCompile(`(?i)form|technique|how to|proper|correct|safety`)},
	{IntentMotivation, regexp.MustCompile(`(?i)motivation|inspire|goal|progress|consistency|discipline`)},
	{IntentEquipment, regexp.MustCompile(`(?i)equipment|gym|home|dumbbells|barbell|machine`)},
	{IntentBeginner, regexp.MustCompile(`(?i)beginner|start|new|first time|just started`)},
	{IntentAdvanced, regexp.MustCompile(`(?i)advanced|experienced|expert|professional|years`)},
}

type entityRule struct {
	kind    string
	pattern *regexp.Regexp
}

var entityRules = []entityRule{
	{"bodyParts", regexp.MustCompile(`(?i)chest|back|legs|shoulders|arms|biceps|triceps|abs|core|glutes`)},
	{"timeFrames", regexp.MustCompile(`(?i)\d+\s*(?:day|week|month|year)s?`)},
	{"numbers", regexp.MustCompile(`\d+`)},
	{"equipment", regexp.MustCompile(`(?i)dumbbell|barbell|machine|cable|bodyweight|resistance band`)},
}

// Analysis is the rule-based reading of a user message.
type Analysis struct {
	Intent     Intent
	Confidence float64
	Entities   []Entity
}

// Analyze classifies a message against the intent and entity rule
// tables. When no rule fires and the conversation already has a topic,
// the intent is inherited from context at reduced confidence.
func Analyze(message string, ctx Context) Analysis {
	a := Analysis{Intent: IntentGeneral, Confidence: 0.5}
	for _, r := range intentRules {
		if r.pattern.MatchString(message) {
			a.Intent = r.intent
			a.Confidence = 0.8
			break
		}
	}
	for _, r := range entityRules {
		for _, m := range r.pattern.FindAllString(message, -1) {
			a.Entities = append(a.Entities, Entity{Type: r.kind, Value: m})
		}
	}
	if a.Intent == IntentGeneral && ctx.CurrentTopic != "" {
		a.Intent = Intent(ctx.CurrentTopic)
		a.Confidence = 0.6
	}
	return a
}

// Canned knowledge base for the rule-based responder.

var workoutKnowledge = map[string]string{
	"beginner":     "A simple 3-day split: Day 1: Upper body (push-ups, rows, shoulder press), Day 2: Lower body (squats, lunges, calf raises), Day 3: Core and cardio.",
	"intermediate": "4-day split: Day 1: Chest & Triceps, Day 2: Back & Biceps, Day 3: Legs & Glutes, Day 4: Shoulders & Core. Focus on progressive overload!",
	"advanced":     "Advanced 5-6 day split with specialization: Push/Pull/Legs/Push/Pull/Legs or Body part splits with advanced techniques.",
}

var nutritionKnowledge = map[string]string{
	"weight_loss": "For weight loss: Create a 300-500 calorie deficit, prioritize protein (0.8-1g per lb), eat whole foods, track calories, stay hydrated. Include both cardio and strength training.",
	"muscle_gain": "For muscle gain: Eat in a 300-500 calorie surplus, consume 0.8-1g protein per lb bodyweight, focus on complex carbs around workouts, healthy fats 20-30% of calories.",
	"maintenance": "For maintenance: Eat at your TDEE, balance macronutrients (protein 25-30%, carbs 40-50%, fats 20-30%), focus on nutrient-dense whole foods.",
}

const supplementKnowledge = "Essential supplements: Whey protein powder, creatine monohydrate (3-5g daily), multivitamin, omega-3 fish oil, vitamin D3."

var exerciseKnowledge = map[string]string{
	"chest":     "Best chest exercises: Bench press, incline dumbbell press, dips, push-ups, chest flyes. Focus on full range of motion and progressive overload.",
	"back":      "Best back exercises: Pull-ups, rows (barbell/dumbbell), lat pulldowns, deadlifts, face pulls. Maintain proper posture and squeeze shoulder blades.",
	"legs":      "Best leg exercises: Squats, deadlifts, lunges, leg press, Bulgarian split squats, calf raises. Don't skip leg day!",
	"shoulders": "Best shoulder exercises: Overhead press, lateral raises, rear delt flyes, upright rows. Focus on form over weight.",
	"arms":      "Best arm exercises: Bicep curls, tricep dips, hammer curls, close-grip push-ups, overhead tricep extension.",
}

const (
	gentleRedirect = "That's an interesting question! However, I'm PIE Fitness Assistant, your personal AI fitness coach. 🏋️‍♂️ I'm here to help you achieve amazing results with workouts, nutrition, bodybuilding, and fitness motivation. Fitness is not just about physical transformation - it builds mental strength, confidence, and discipline that helps in all areas of life! What fitness challenge can I help you conquer today? Are you looking to build muscle, lose weight, or improve your overall health? Let's get started! 💪"

	firmRedirect = "I understand you have various interests, but I'm PIE Fitness Assistant - your dedicated fitness companion! 💪 I'm specifically designed to help you transform your body and achieve your health goals. Instead of other topics, let me help you build strength, lose fat, gain muscle, or create the perfect workout routine. Your fitness journey is what I'm passionate about! What's your main fitness goal right now - building muscle, losing weight, or getting stronger? Let's make it happen together! 🔥"

	welcomeResponse = "Hello! I'm PIE Fitness Assistant, your dedicated AI fitness coach! 💪 I'm here to help you transform your body and achieve incredible results. Whether you want to build muscle, lose fat, create workout routines, get nutrition advice, or need motivation - I've got you covered! What's your fitness goal? Let's build something amazing together! 🔥"
)

// RuleResponder produces canned responses when no language backend is
// reachable.
type RuleResponder struct{}

// Respond picks a canned response from the analysis, scope result, and
// conversation state.
func (RuleResponder) Respond(analysis Analysis, scope ScopeResult, conv *Conversation) string {
	if scope.IsOffTopic {
		if scope.ConsecutiveOffTopic >= redirectThreshold {
			return firmRedirect
		}
		return gentleRedirect
	}

	if len(conv.UserMessages()) <= 1 || analysis.Intent == IntentGeneral {
		return welcomeResponse
	}

	switch analysis.Intent {
	case IntentWorkout:
		level := strings.ToLower(conv.Context.FitnessLevel)
		advice, ok := workoutKnowledge[level]
		if !ok {
			advice = workoutKnowledge["intermediate"]
		}
		if hasEntity(analysis.Entities, "equipment") {
			return "Great question about workouts! " + advice + " Remember, consistency and progressive overload are key to amazing results! Make sure to adjust exercises based on your available equipment and always maintain proper form. Your transformation starts with each rep! 💪"
		}
		return advice + " Would you like me to customize this based on your experience level and available equipment? I'm here to help you build the perfect routine for maximum results! 🔥"

	case IntentWeightLoss:
		return nutritionKnowledge["weight_loss"] + " Remember, sustainable fat loss is about creating healthy habits that last! Would you like me to help you calculate your specific caloric needs? Your transformation journey starts with proper nutrition! 🔥"

	case IntentMuscleGain:
		return nutritionKnowledge["muscle_gain"] + " Timing your nutrition around workouts can also enhance your results! Fuel your body right and watch those gains happen! 💪"

	case IntentNutrition:
		return nutritionKnowledge["maintenance"] + " Let me know your specific goals and I can provide more targeted advice! Proper nutrition is 70% of your results! 🥗"

	case IntentSupplements:
		return supplementKnowledge + " These cover the fundamentals for supporting your fitness goals! Remember, supplements support a good diet and training - they're not magic pills, but they can definitely help optimize your results! For specific goals or advanced training, we can discuss additional options. What's your primary fitness goal? 💊💪"

	case IntentForm:
		if part := firstEntity(analysis.Entities, "bodyParts"); part != "" {
			if advice, ok := exerciseKnowledge[strings.ToLower(part)]; ok {
				return advice + " Perfect form equals better results and injury prevention! Would you like detailed form cues for any specific exercise? Let's make every rep count! 🎯"
			}
		}
		return "Excellent question about form! Proper technique is crucial for both safety and maximum effectiveness! Focus on controlled movements, full range of motion, and really feel that mind-muscle connection. Which specific exercise would you like form tips for? Let's perfect your technique! 💪"

	case IntentMotivation:
		return "You're asking the right questions! 🔥 Consistency is the secret to achieving your fitness goals! Remember: progress isn't always linear, small daily actions lead to BIG transformations, and every single workout counts toward your dream physique. What's your biggest challenge right now? I'm here to help you crush through any obstacle and achieve incredible results! Your transformation starts NOW! 💪"
	}

	return "That's a great fitness question! As your PIE Fitness Assistant, I'm here to help you achieve amazing results. Based on our conversation, I'd recommend focusing on consistency and gradual progression. Would you like me to provide more specific guidance tailored to your fitness goals? Let's build something incredible together! 🔥💪"
}

func hasEntity(entities []Entity, kind string) bool {
	for _, e := range entities {
		if e.Type == kind {
			return true
		}
	}
	return false
}

func firstEntity(entities []Entity, kind string) string {
	for _, e := range entities {
		if e.Type == kind {
			return e.Value
		}
	}
	return ""
}
