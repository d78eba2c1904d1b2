package insights

import "strings"

const (
	fallbackAssessment = "Could not connect to the AI medical assistant. The following is generalized guidance."
	fallbackUrgency    = "If symptoms are severe or worsen, seek medical attention promptly."
	fallbackWarnings   = "If you experience severe chest pain, difficulty breathing, or loss of consciousness, call emergency services immediately."
)

type conditionRule struct {
	match      func(s string) bool
	conditions []string
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Rules are checked in order; the first match wins.
var conditionRules = []conditionRule{
	{
		match:      func(s string) bool { return containsAny(s, "chest pain", "heart") },
		conditions: []string{"Angina: 45%", "Myocardial Infarction: 25%", "Costochondritis: 20%"},
	},
	{
		match:      func(s string) bool { return strings.Contains(s, "cough") && strings.Contains(s, "fever") },
		conditions: []string{"Pneumonia: 40%", "Bronchitis: 35%", "Upper Respiratory Infection: 25%"},
	},
	{
		match: func(s string) bool {
			return strings.Contains(s, "headache") && containsAny(s, "nausea", "vomit")
		},
		conditions: []string{"Migraine: 50%", "Tension Headache: 30%", "Sinusitis: 20%"},
	},
	{
		match:      func(s string) bool { return strings.Contains(s, "headache") },
		conditions: []string{"Tension Headache: 60%", "Migraine: 25%", "Dehydration: 15%"},
	},
	{
		match:      func(s string) bool { return strings.Contains(s, "fever") },
		conditions: []string{"Viral Infection: 60%", "Bacterial Infection: 25%", "Influenza: 15%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "abdominal", "stomach") },
		conditions: []string{"Gastroenteritis: 40%", "Peptic Ulcer: 30%", "IBS: 25%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "fatigue", "tired") },
		conditions: []string{"Viral Syndrome: 40%", "Anemia: 30%", "Thyroid Disorder: 25%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "rash", "skin") },
		conditions: []string{"Allergic Reaction: 45%", "Dermatitis: 35%", "Viral Exanthem: 20%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "joint", "arthritis") },
		conditions: []string{"Osteoarthritis: 50%", "Rheumatoid Arthritis: 30%", "Gout: 20%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "diarrhea", "bowel") },
		conditions: []string{"Gastroenteritis: 50%", "IBS: 30%", "Food Poisoning: 20%"},
	},
	{
		match:      func(s string) bool { return containsAny(s, "dizz", "vertigo") },
		conditions: []string{"Benign Vertigo: 45%", "Hypotension: 30%", "Inner Ear Infection: 25%"},
	},
}

var defaultConditions = []string{"Viral Infection: 40%", "Common Cold: 35%", "Stress-related Symptoms: 25%"}

func fallbackConditions(symptoms string) []string {
	s := strings.ToLower(symptoms)
	for _, rule := range conditionRules {
		if rule.match(s) {
			return append([]string(nil), rule.conditions...)
		}
	}
	return append([]string(nil), defaultConditions...)
}

func fallbackRecommendations(symptoms string) string {
	s := strings.ToLower(symptoms)
	switch {
	case strings.Contains(s, "chest pain"):
		return "Seek immediate medical attention. Avoid physical exertion. Take aspirin if not allergic (unless contraindicated)."
	case strings.Contains(s, "fever"):
		return "Rest and stay hydrated. Take acetaminophen or ibuprofen for fever reduction. Monitor temperature regularly."
	case strings.Contains(s, "headache"):
		return "Rest in a dark, quiet room. Apply cold or warm compress. Stay hydrated. Consider over-the-counter pain relievers."
	case strings.Contains(s, "cough"):
		return "Stay hydrated. Use honey or throat lozenges. Avoid irritants like smoke. Rest your voice."
	}
	return "Rest and stay hydrated. Monitor symptoms closely. Take over-the-counter medications as needed for symptom relief."
}

func fallbackSelfCare(symptoms string) string {
	s := strings.ToLower(symptoms)
	tips := []string{"Stay well hydrated with water and clear fluids", "Get adequate rest and sleep"}

	switch {
	case strings.Contains(s, "fever"):
		tips = append(tips, "Use cool compresses or lukewarm baths to reduce fever", "Wear light, breathable clothing")
	case strings.Contains(s, "headache"):
		tips = append(tips, "Apply cold or warm compress to head or neck", "Practice relaxation techniques")
	case strings.Contains(s, "cough"):
		tips = append(tips, "Use a humidifier or breathe steam from hot shower", "Drink warm liquids like herbal tea with honey")
	case strings.Contains(s, "nausea"):
		tips = append(tips, "Eat bland foods like crackers or toast", "Try ginger tea or peppermint")
	default:
		tips = append(tips, "Maintain a healthy diet with fruits and vegetables", "Avoid stress and practice gentle exercise if able")
	}
	return strings.Join(tips, " • ")
}

// FallbackGuidance is the rule-based guidance returned when the inference
// service cannot be reached.
func FallbackGuidance(symptoms string) *Guidance {
	return &Guidance{
		Assessment:      fallbackAssessment,
		Conditions:      fallbackConditions(symptoms),
		Recommendations: fallbackRecommendations(symptoms),
		Urgency:         fallbackUrgency,
		SelfCare:        fallbackSelfCare(symptoms),
		Warnings:        fallbackWarnings,
		Fallback:        true,
	}
}
