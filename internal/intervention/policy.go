package intervention

import (
	"strings"

	"github.com/steadyapp/steady/internal/analytics"
	"github.com/steadyapp/steady/internal/models"
)

// negativeSignals are free-text markers that warrant reaching out even when
// the numeric mood alone would not.
var negativeSignals = []string{
	"sad", "anxious", "overwhelmed", "hopeless", "stressed",
	"lonely", "exhausted", "worthless", "burned out", "burnt out",
	"can't cope", "depressed", "panic",
}

// ShouldTrigger decides whether the window warrants a coaching intervention.
// Pure: no I/O, no side effects. An empty window never triggers.
func ShouldTrigger(window []models.Checkin) bool {
	if len(window) == 0 {
		return false
	}
	latest := window[0]
	if latest.MoodScore <= 2 {
		return true
	}
	if avg := analytics.MoodAverage(window); avg != nil && *avg < 2.5 {
		return true
	}
	if analytics.Trend(window) == models.TrendDeclining {
		return true
	}
	if latest.FreeText != nil && hasNegativeSignal(*latest.FreeText) {
		return true
	}
	return false
}

func hasNegativeSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range negativeSignals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// TemplateFor maps a mood value to exactly one template type. Total and
// deterministic over [1,5]. When the rolling average is unavailable the
// triggering check-in's own score stands in.
func TemplateFor(moodAverage *float64, checkinScore int) models.TemplateType {
	m := float64(checkinScore)
	if moodAverage != nil {
		m = *moodAverage
	}
	switch {
	case m <= 2:
		return models.TemplateCompassion
	case m <= 3.5:
		return models.TemplateReflection
	default:
		return models.TemplateAction
	}
}

// ToneTemplate maps the remote service's tone_used value onto a template
// type. Unknown tones report false so the caller keeps its base template.
func ToneTemplate(tone string) (models.TemplateType, bool) {
	switch strings.ToLower(strings.TrimSpace(tone)) {
	case "supportive", "gentle", "warm", "compassionate":
		return models.TemplateCompassion, true
	case "reflective", "curious", "thoughtful":
		return models.TemplateReflection, true
	case "motivational", "directive", "energizing", "encouraging":
		return models.TemplateAction, true
	default:
		return "", false
	}
}
