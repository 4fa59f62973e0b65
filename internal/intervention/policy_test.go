package intervention

import (
	"testing"
	"time"

	"github.com/steadyapp/steady/internal/models"
)

func checkinsWithMoods(moods ...int) []models.Checkin {
	now := time.Now().UTC()
	out := make([]models.Checkin, len(moods))
	for i, m := range moods {
		out[i] = models.Checkin{
			MoodScore:   m,
			EnergyLevel: models.EnergyMid,
			CreatedAt:   now.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestShouldTrigger(t *testing.T) {
	tests := []struct {
		name   string
		window []models.Checkin
		want   bool
	}{
		{"empty window never triggers", nil, false},
		{"latest mood of 1", checkinsWithMoods(1, 4, 4), true},
		{"latest mood of 2", checkinsWithMoods(2, 4, 4), true},
		{"low rolling average", checkinsWithMoods(3, 2, 2, 2, 2), true},
		{"declining trend", checkinsWithMoods(3, 3, 5, 5), true},
		{"healthy window", checkinsWithMoods(4, 4, 5, 4, 4), false},
		{"single good check-in", checkinsWithMoods(5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldTrigger(tt.window); got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestShouldTriggerNegativeFreeText(t *testing.T) {
	note := "feeling pretty overwhelmed by everything"
	w := checkinsWithMoods(4, 4, 4, 4)
	w[0].FreeText = &note
	if !ShouldTrigger(w) {
		t.Fatal("negative free text on a good mood must still trigger")
	}

	neutral := "nice walk in the park"
	w[0].FreeText = &neutral
	if ShouldTrigger(w) {
		t.Fatal("neutral free text must not trigger")
	}
}

func TestTemplateForIsTotalOverDomain(t *testing.T) {
	// Every representable mood value in [1,5] must map to exactly one template.
	for m := 10; m <= 50; m++ {
		v := float64(m) / 10
		got := TemplateFor(&v, 3)
		switch got {
		case models.TemplateCompassion, models.TemplateReflection, models.TemplateAction:
		default:
			t.Fatalf("mood %v mapped to unknown template %q", v, got)
		}
	}
}

func TestTemplateForBoundaries(t *testing.T) {
	tests := []struct {
		mood float64
		want models.TemplateType
	}{
		{1, models.TemplateCompassion},
		{2, models.TemplateCompassion},
		{2.1, models.TemplateReflection},
		{3.5, models.TemplateReflection},
		{3.6, models.TemplateAction},
		{5, models.TemplateAction},
	}
	for _, tt := range tests {
		if got := TemplateFor(&tt.mood, 3); got != tt.want {
			t.Fatalf("mood %v: want %s, got %s", tt.mood, tt.want, got)
		}
	}
}

func TestTemplateForNilMoodUsesCheckinScore(t *testing.T) {
	if got := TemplateFor(nil, 1); got != models.TemplateCompassion {
		t.Fatalf("nil mood with score 1: want compassion, got %s", got)
	}
	if got := TemplateFor(nil, 5); got != models.TemplateAction {
		t.Fatalf("nil mood with score 5: want action, got %s", got)
	}
}

func TestToneTemplate(t *testing.T) {
	tests := []struct {
		tone string
		want models.TemplateType
		ok   bool
	}{
		{"supportive", models.TemplateCompassion, true},
		{"Gentle", models.TemplateCompassion, true},
		{"reflective", models.TemplateReflection, true},
		{"motivational", models.TemplateAction, true},
		{" directive ", models.TemplateAction, true},
		{"sarcastic", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ToneTemplate(tt.tone)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("tone %q: want (%s, %v), got (%s, %v)", tt.tone, tt.want, tt.ok, got, ok)
		}
	}
}
