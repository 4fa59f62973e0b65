package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/steadyapp/steady/internal/analytics"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/intervention"
	"github.com/steadyapp/steady/internal/models"
)

// maxFreeTextLen is the free-text character limit, counted after trimming.
const maxFreeTextLen = 280

// ValidationError marks client input problems. Handlers map it to a 400;
// nothing is written when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// SubmitInput is a raw check-in submission before validation.
type SubmitInput struct {
	MoodScore   int
	EnergyLevel string
	FreeText    string
}

// CheckinService orchestrates the ingestion flow: validate, persist, compute
// analytics, evaluate the intervention policy, deliver the fallback message
// and hand the upgrade to the background worker.
type CheckinService struct {
	db         core.DbClient
	composer   *intervention.Composer
	worker     *intervention.Worker
	engagement core.EngagementSink
}

func NewCheckinService(db core.DbClient, composer *intervention.Composer, worker *intervention.Worker, engagement core.EngagementSink) *CheckinService {
	return &CheckinService{db: db, composer: composer, worker: worker, engagement: engagement}
}

// Validate checks a submission against the input contract. It normalizes
// free text (trimmed, empty stored as nil) via the returned pointer.
func Validate(in SubmitInput) (*string, error) {
	if in.MoodScore < 1 || in.MoodScore > 5 {
		return nil, &ValidationError{Msg: "mood score must be between 1 and 5"}
	}
	if !models.EnergyLevel(in.EnergyLevel).Valid() {
		return nil, &ValidationError{Msg: "energy level must be low, mid, or high"}
	}
	text := strings.TrimSpace(in.FreeText)
	if len([]rune(text)) > maxFreeTextLen {
		return nil, &ValidationError{Msg: "free text must be 280 characters or less"}
	}
	if text == "" {
		return nil, nil
	}
	return &text, nil
}

// Submit runs the whole flow for one check-in and returns the stored row plus
// the analytics summary. The check-in being saved is the primary guarantee:
// analytics and intervention failures degrade instead of failing the call.
func (s *CheckinService) Submit(ctx context.Context, userID string, in SubmitInput) (*models.Checkin, analytics.Summary, error) {
	freeText, err := Validate(in)
	if err != nil {
		return nil, analytics.Summary{}, err
	}

	checkin := &models.Checkin{
		ID:          uuid.NewString(),
		UserID:      userID,
		MoodScore:   in.MoodScore,
		EnergyLevel: models.EnergyLevel(in.EnergyLevel),
		FreeText:    freeText,
	}
	if err := s.db.CreateCheckin(ctx, checkin); err != nil {
		return nil, analytics.Summary{}, fmt.Errorf("save check-in: %w", err)
	}

	summary := s.analyzeAndIntervene(ctx, checkin)

	s.engagement.Track(models.EngagementEvent{
		UserID: userID,
		Action: "checkin",
		Metadata: map[string]any{
			"mood_score":   checkin.MoodScore,
			"energy_level": checkin.EnergyLevel,
		},
	})

	return checkin, summary, nil
}

// analyzeAndIntervene re-fetches the recent window (including the row just
// written), computes the summary and, when the policy fires, delivers the
// fallback intervention and enqueues the upgrade. Always returns a usable
// summary; every error on this path is logged and degraded.
func (s *CheckinService) analyzeAndIntervene(ctx context.Context, checkin *models.Checkin) analytics.Summary {
	window, err := s.db.RecentCheckins(ctx, checkin.UserID, analytics.WindowSize)
	if err != nil {
		log.Printf("recent check-in fetch failed for user %s, continuing without analytics: %v", checkin.UserID, err)
		return analytics.Summary{MoodTrend: models.TrendStable}
	}
	if len(window) == 0 {
		// The row we just wrote should be visible; treat its absence like a
		// degraded read.
		return analytics.Summary{MoodTrend: models.TrendStable}
	}

	total, err := s.db.CountCheckins(ctx, checkin.UserID)
	if err != nil {
		log.Printf("check-in count failed for user %s: %v", checkin.UserID, err)
		total = 0
	}

	summary := analytics.Summarize(window, total, time.Now())

	if !intervention.ShouldTrigger(window) {
		return summary
	}
	summary.InterventionTriggered = true
	tmpl := intervention.TemplateFor(summary.MoodAverage, checkin.MoodScore)
	summary.TemplateType = &tmpl

	traits, err := s.db.LatestBaselineTraits(ctx, checkin.UserID)
	if err != nil {
		log.Printf("baseline traits fetch failed for user %s: %v", checkin.UserID, err)
		traits = nil
	}

	iv, job, err := s.composer.CreateFallback(ctx, *checkin, summary, traits)
	if err != nil {
		// The check-in itself succeeded; the user just gets no message.
		log.Printf("fallback intervention failed for check-in %s: %v", checkin.ID, err)
		return summary
	}
	s.worker.Enqueue(job)
	log.Printf("fallback delivered, upgrade queued for intervention %s", iv.ID)

	return summary
}

// List returns one page of the user's check-in history plus the total count.
func (s *CheckinService) List(ctx context.Context, userID string, q core.CheckinQuery) ([]models.Checkin, int, error) {
	return s.db.ListCheckins(ctx, userID, q)
}
