package core

import "context"

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// CoachCheckin is the check-in slice of a coaching request.
type CoachCheckin struct {
	MoodScore   int    `json:"mood_score"`
	EnergyLevel string `json:"energy_level"`
	Note        string `json:"note,omitempty"`
}

// CoachAnalytics is the analytics slice of a coaching request.
type CoachAnalytics struct {
	AverageMood *float64 `json:"average_mood"`
	Trend       string   `json:"trend"`
	StreakDays  int      `json:"streak_days"`
}

// CoachRequest is the payload of the "request coaching message" RPC.
type CoachRequest struct {
	UserID        string             `json:"user_id"`
	LatestCheckin CoachCheckin       `json:"latest_checkin"`
	Analytics     CoachAnalytics     `json:"analytics"`
	Personality   map[string]float64 `json:"personality,omitempty"`
	HistoryRefs   []string           `json:"history_refs"`
}

// CoachResponse is what the remote coaching service returns. Title, Body and
// ToneUsed are required; a response missing any of them is rejected at the
// client boundary.
type CoachResponse struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	SuggestedAction string `json:"suggested_action,omitempty"`
	ToneUsed        string `json:"tone_used"`
}

// CoachClient talks to the remote coaching orchestrator. Implementations must
// bound the call with their own timeout; callers never wait indefinitely.
type CoachClient interface {
	RequestCoachingMessage(ctx context.Context, req *CoachRequest) (*CoachResponse, error)
}
