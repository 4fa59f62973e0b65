package intervention

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/steadyapp/steady/internal/analytics"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/models"
)

// upgradeTimeout bounds one whole upgrade job, remote call included.
const upgradeTimeout = 2 * time.Minute

// Composer produces intervention messages in two phases: a synchronous local
// fallback that is persisted immediately, and a best-effort async upgrade
// that replaces it with a remote- or AI-generated message.
//
// coach and llm may be nil; a nil collaborator silently routes generation to
// the next path down (remote -> local AI -> keep the fallback).
type Composer struct {
	db    core.DbClient
	coach core.CoachClient
	llm   core.LLMProvider
}

func NewComposer(db core.DbClient, coach core.CoachClient, llm core.LLMProvider) *Composer {
	return &Composer{db: db, coach: coach, llm: llm}
}

// UpgradeJob carries everything the async phase needs, captured at
// fallback-creation time so the job does not depend on request state.
type UpgradeJob struct {
	InterventionID string
	UserID         string
	Checkin        models.Checkin
	Summary        analytics.Summary
	BaseTemplate   models.TemplateType
	Fallback       models.MessagePayload
}

// CreateFallback builds and persists the immediate template message with
// analysis_status pending. It returns the stored row and a ready-to-enqueue
// upgrade job.
func (c *Composer) CreateFallback(ctx context.Context, checkin models.Checkin, summary analytics.Summary, traits *models.BaselineTraits) (*models.Intervention, UpgradeJob, error) {
	tmpl := TemplateFor(summary.MoodAverage, checkin.MoodScore)

	fc := FallbackContext{
		MoodAverage:    summary.MoodAverage,
		MoodTrend:      summary.MoodTrend,
		EnergyLevel:    checkin.EnergyLevel,
		FreeText:       checkin.FreeText,
		RecentCheckins: summary.RecentCheckinsCount,
		StreakDays:     summary.StreakDays,
	}
	if traits != nil {
		fc.Traits = traits.TraitsP01
	}
	payload := EnhanceWithPersonality(GenerateFallback(tmpl, fc), fc.Traits, tmpl)

	iv := &models.Intervention{
		ID:             uuid.NewString(),
		UserID:         checkin.UserID,
		CheckinID:      checkin.ID,
		TemplateType:   tmpl,
		MessagePayload: payload,
		Fallback:       true,
		Viewed:         false,
		AnalysisStatus: models.AnalysisPending,
	}
	if err := c.db.CreateIntervention(ctx, iv); err != nil {
		return nil, UpgradeJob{}, fmt.Errorf("save fallback intervention: %w", err)
	}

	job := UpgradeJob{
		InterventionID: iv.ID,
		UserID:         checkin.UserID,
		Checkin:        checkin,
		Summary:        summary,
		BaseTemplate:   tmpl,
		Fallback:       payload,
	}
	return iv, job, nil
}

// Upgrade runs the async phase for one intervention. It always drives the row
// to a terminal ready state: remote coaching first (when configured), local
// AI second, and if both fail the fallback payload is finalized as-is.
// The job runs detached from the caller's context on its own deadline:
// cancelling the submitter must not abandon a row short of ready, and the
// timeout keeps a stuck collaborator from holding the job forever.
func (c *Composer) Upgrade(_ context.Context, job UpgradeJob) error {
	procCtx, cancel := context.WithTimeout(context.Background(), upgradeTimeout)
	defer cancel()

	traits, refs := c.fetchUpgradeInputs(procCtx, job.UserID)

	tmpl := job.BaseTemplate
	var payload *models.MessagePayload

	if c.coach != nil {
		resp, err := c.coach.RequestCoachingMessage(procCtx, c.buildCoachRequest(job, traits, refs))
		if err != nil {
			log.Printf("coach upgrade failed for intervention %s, falling back to local AI: %v", job.InterventionID, err)
		} else {
			if t, ok := ToneTemplate(resp.ToneUsed); ok {
				tmpl = t
			}
			payload = &models.MessagePayload{
				Title:   resp.Title,
				Body:    resp.Body,
				CTAText: resp.SuggestedAction,
			}
		}
	}

	if payload == nil && c.llm != nil {
		p, err := c.generateLocalAI(procCtx, job, traits)
		if err != nil {
			log.Printf("local AI upgrade failed for intervention %s: %v", job.InterventionID, err)
		} else {
			payload = p
		}
	}

	if payload == nil {
		// Nothing better than the fallback; still advance to ready so the
		// row is never stuck pending.
		if err := c.db.FinalizeIntervention(procCtx, job.InterventionID); err != nil {
			return fmt.Errorf("finalize intervention %s: %w", job.InterventionID, err)
		}
		return nil
	}

	if err := c.db.UpgradeIntervention(procCtx, job.InterventionID, tmpl, *payload, false); err != nil {
		log.Printf("upgrade write failed for intervention %s: %v", job.InterventionID, err)
		if ferr := c.db.FinalizeIntervention(procCtx, job.InterventionID); ferr != nil {
			return fmt.Errorf("finalize after failed upgrade %s: %w", job.InterventionID, ferr)
		}
	}
	return nil
}

// FinalizeFallback advances an intervention to ready without any generation
// attempt. Used when the upgrade queue cannot accept the job.
func (c *Composer) FinalizeFallback(interventionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.db.FinalizeIntervention(ctx, interventionID)
}

// fetchUpgradeInputs pulls the latest traits and recent-check-in references
// concurrently. Both are best-effort: a failure logs and yields zero values.
func (c *Composer) fetchUpgradeInputs(ctx context.Context, userID string) (map[string]float64, []string) {
	var (
		traits *models.BaselineTraits
		window []models.Checkin
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		traits, err = c.db.LatestBaselineTraits(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		window, err = c.db.RecentCheckins(gctx, userID, analytics.WindowSize)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("upgrade input fetch degraded for user %s: %v", userID, err)
	}

	var tp map[string]float64
	if traits != nil {
		tp = traits.TraitsP01
	}
	refs := make([]string, 0, len(window))
	for _, ch := range window {
		refs = append(refs, ch.ID)
	}
	return tp, refs
}

func (c *Composer) buildCoachRequest(job UpgradeJob, traits map[string]float64, refs []string) *core.CoachRequest {
	note := ""
	if job.Checkin.FreeText != nil {
		note = *job.Checkin.FreeText
	}
	return &core.CoachRequest{
		UserID: job.UserID,
		LatestCheckin: core.CoachCheckin{
			MoodScore:   job.Checkin.MoodScore,
			EnergyLevel: string(job.Checkin.EnergyLevel),
			Note:        note,
		},
		Analytics: core.CoachAnalytics{
			AverageMood: job.Summary.MoodAverage,
			Trend:       string(job.Summary.MoodTrend),
			StreakDays:  job.Summary.StreakDays,
		},
		Personality: traits,
		HistoryRefs: refs,
	}
}

const localAISystemPrompt = `You are a concise, supportive wellness coach. ` +
	`Reply with a single JSON object: {"title": string, "body": string, "cta_text": string}. ` +
	`Title under 8 words, body 2-3 sentences, cta_text a short imperative. No other text.`

// generateLocalAI asks the configured LLM for a message and parses it with
// the same fail-closed discipline as the remote path.
func (c *Composer) generateLocalAI(ctx context.Context, job UpgradeJob, traits map[string]float64) (*models.MessagePayload, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The user just checked in with mood %d/5 and %s energy.", job.Checkin.MoodScore, job.Checkin.EnergyLevel)
	if job.Summary.MoodAverage != nil {
		fmt.Fprintf(&sb, " Their 7-day mood average is %.1f and the trend is %s.", *job.Summary.MoodAverage, job.Summary.MoodTrend)
	}
	if job.Summary.StreakDays > 1 {
		fmt.Fprintf(&sb, " They are on a %d-day check-in streak.", job.Summary.StreakDays)
	}
	if job.Checkin.FreeText != nil && *job.Checkin.FreeText != "" {
		fmt.Fprintf(&sb, " They wrote: %q.", *job.Checkin.FreeText)
	}
	for trait, score := range traits {
		if score >= 0.7 {
			fmt.Fprintf(&sb, " Their %s is high.", trait)
		}
	}
	fmt.Fprintf(&sb, " Write them a %s-style coaching message.", job.BaseTemplate)

	out, err := c.llm.Generate(ctx, localAISystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}
	return parseMessageJSON(out)
}

// parseMessageJSON decodes an LLM reply into a message payload, tolerating
// markdown code fences but rejecting anything without a title and body.
func parseMessageJSON(out string) (*models.MessagePayload, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var msg models.MessagePayload
	if err := json.Unmarshal([]byte(out), &msg); err != nil {
		return nil, fmt.Errorf("parse llm reply: %w", err)
	}
	if msg.Title == "" || msg.Body == "" {
		return nil, fmt.Errorf("llm reply missing title or body")
	}
	return &msg, nil
}
