package intervention

import (
	"strings"
	"testing"

	"github.com/steadyapp/steady/internal/models"
)

func TestGenerateFallbackAlwaysProducesAMessage(t *testing.T) {
	for _, tmpl := range []models.TemplateType{
		models.TemplateReflection, models.TemplateAction, models.TemplateCompassion,
	} {
		msg := GenerateFallback(tmpl, FallbackContext{EnergyLevel: models.EnergyMid})
		if msg.Title == "" || msg.Body == "" {
			t.Fatalf("%s: fallback must always carry a title and body, got %+v", tmpl, msg)
		}
	}
}

func TestGenerateFallbackActionMentionsStreak(t *testing.T) {
	msg := GenerateFallback(models.TemplateAction, FallbackContext{
		EnergyLevel: models.EnergyHigh,
		StreakDays:  5,
	})
	if !strings.Contains(msg.Body, "5-day") {
		t.Fatalf("streak of 5 should surface in the body, got %q", msg.Body)
	}

	msg = GenerateFallback(models.TemplateAction, FallbackContext{
		EnergyLevel: models.EnergyHigh,
		StreakDays:  1,
	})
	if strings.Contains(msg.Body, "streak") {
		t.Fatalf("a 1-day streak is not worth mentioning, got %q", msg.Body)
	}
}

func TestEnhanceWithPersonality(t *testing.T) {
	base := GenerateFallback(models.TemplateCompassion, FallbackContext{EnergyLevel: models.EnergyLow})

	got := EnhanceWithPersonality(base, nil, models.TemplateCompassion)
	if got != base {
		t.Fatal("no traits must leave the message unchanged")
	}

	traits := map[string]float64{"neuroticism": 0.9}
	got = EnhanceWithPersonality(base, traits, models.TemplateCompassion)
	if got.Body == base.Body {
		t.Fatal("high neuroticism should soften the compassion body")
	}

	// Deterministic: same inputs, same message.
	again := EnhanceWithPersonality(base, traits, models.TemplateCompassion)
	if got != again {
		t.Fatal("enhancement must be deterministic")
	}
}

func TestEnhanceWithPersonalityActionCTA(t *testing.T) {
	base := GenerateFallback(models.TemplateAction, FallbackContext{EnergyLevel: models.EnergyHigh})
	got := EnhanceWithPersonality(base, map[string]float64{"conscientiousness": 0.8}, models.TemplateAction)
	if got.CTAText == base.CTAText {
		t.Fatal("high conscientiousness should sharpen the action CTA")
	}
}
