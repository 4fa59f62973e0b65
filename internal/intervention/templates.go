package intervention

import (
	"fmt"

	"github.com/steadyapp/steady/internal/models"
)

// FallbackContext carries everything the local template path may draw on.
// All fields except EnergyLevel are optional.
type FallbackContext struct {
	MoodAverage    *float64
	MoodTrend      models.MoodTrend
	EnergyLevel    models.EnergyLevel
	FreeText       *string
	Traits         map[string]float64
	RecentCheckins int
	StreakDays     int
}

// GenerateFallback builds the locally-generated message for a template type.
// It must always succeed: this is the payload that guarantees a user-visible
// message with bounded latency no matter what the remote service does.
func GenerateFallback(t models.TemplateType, fc FallbackContext) models.MessagePayload {
	switch t {
	case models.TemplateCompassion:
		return compassionMessage(fc)
	case models.TemplateAction:
		return actionMessage(fc)
	default:
		return reflectionMessage(fc)
	}
}

func compassionMessage(fc FallbackContext) models.MessagePayload {
	body := "Rough days are part of being human, and noticing them is already a step. Be as kind to yourself today as you would be to a friend."
	if fc.MoodTrend == models.TrendDeclining {
		body = "The last few days look heavy, and that deserves some gentleness. Nothing needs fixing right now; just take a little pressure off where you can."
	}
	return models.MessagePayload{
		Title:   "Be gentle with yourself",
		Body:    body,
		CTAText: "Take a slow breath",
	}
}

func reflectionMessage(fc FallbackContext) models.MessagePayload {
	body := "You're somewhere in the middle today. A minute of honest reflection often shows what's quietly asking for attention."
	if fc.FreeText != nil && *fc.FreeText != "" {
		body = "You put words to how today feels, which matters. Sit with that note for a minute: what's one small thing underneath it?"
	}
	return models.MessagePayload{
		Title:   "A moment to check in with yourself",
		Body:    body,
		CTAText: "Jot one sentence",
	}
}

func actionMessage(fc FallbackContext) models.MessagePayload {
	body := "You've got some momentum. Pick one small thing you've been putting off and give it ten minutes while the energy is there."
	if fc.EnergyLevel == models.EnergyLow {
		body = "Mood is up even if energy isn't. A short walk or a glass of water counts as a win today."
	}
	msg := models.MessagePayload{
		Title:   "Ride the good wave",
		Body:    body,
		CTAText: "Pick one small action",
	}
	if fc.StreakDays >= 3 {
		msg.Body = fmt.Sprintf("%s You're on a %d-day check-in streak, keep it rolling.", msg.Body, fc.StreakDays)
	}
	return msg
}

// EnhanceWithPersonality adjusts a fallback message using the user's latest
// baseline traits. Deterministic: the same traits always produce the same
// message. Unknown or missing traits leave the message unchanged.
func EnhanceWithPersonality(msg models.MessagePayload, traits map[string]float64, t models.TemplateType) models.MessagePayload {
	if len(traits) == 0 {
		return msg
	}
	if traits["conscientiousness"] >= 0.7 && t == models.TemplateAction {
		msg.CTAText = "Write down one concrete next step"
	}
	if traits["neuroticism"] >= 0.7 && t == models.TemplateCompassion {
		msg.Body += " Whatever you're feeling is allowed to be here."
	}
	if traits["extraversion"] >= 0.7 {
		msg.Body += " Reaching out to someone you trust can make this lighter."
	}
	if traits["openness"] >= 0.7 && t == models.TemplateReflection {
		msg.CTAText = "Try writing about it from a new angle"
	}
	return msg
}
