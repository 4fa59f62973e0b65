package models

import (
	"time"
)

// EnergyLevel is the self-reported energy bucket of a check-in.
type EnergyLevel string

const (
	EnergyLow  EnergyLevel = "low"
	EnergyMid  EnergyLevel = "mid"
	EnergyHigh EnergyLevel = "high"
)

// Valid reports whether the value is one of the three accepted buckets.
func (e EnergyLevel) Valid() bool {
	return e == EnergyLow || e == EnergyMid || e == EnergyHigh
}

// MoodTrend classifies the direction of the recent mood window.
type MoodTrend string

const (
	TrendImproving MoodTrend = "improving"
	TrendDeclining MoodTrend = "declining"
	TrendStable    MoodTrend = "stable"
)

// TemplateType selects which family of coaching message to deliver.
type TemplateType string

const (
	TemplateReflection TemplateType = "reflection"
	TemplateAction     TemplateType = "action"
	TemplateCompassion TemplateType = "compassion"
)

// AnalysisStatus tracks the two-phase lifecycle of an intervention message.
type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "pending"
	AnalysisReady   AnalysisStatus = "ready"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Checkin is one mood/energy submission. Immutable once created.
type Checkin struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	MoodScore   int         `db:"mood_score" json:"mood_score"` // 1..5
	EnergyLevel EnergyLevel `db:"energy_level" json:"energy_level"`
	FreeText    *string     `db:"free_text" json:"free_text"` // nil when empty after trimming
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// MessagePayload is the user-visible coaching message body.
type MessagePayload struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	CTAText string `json:"cta_text,omitempty"`
}

// Intervention is a coaching message tied to the check-in that triggered it.
// Inserted once by the fallback path with AnalysisStatus pending, then mutated
// in place (same id) exactly once by the async upgrade path.
type Intervention struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	CheckinID       string         `db:"checkin_id" json:"checkin_id"`
	TemplateType    TemplateType   `db:"template_type" json:"template_type"`
	MessagePayload  MessagePayload `db:"message_payload" json:"message_payload"` // jsonb
	Fallback        bool           `db:"fallback" json:"fallback"`
	Viewed          bool           `db:"viewed" json:"viewed"`
	FeedbackScore   *int           `db:"feedback_score" json:"feedback_score"`
	AnalysisStatus  AnalysisStatus `db:"analysis_status" json:"analysis_status"`
	AnalysisReadyAt *time.Time     `db:"analysis_ready_at" json:"analysis_ready_at"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// BaselineTraits is the latest personality assessment for a user.
// TraitsP01 maps trait names to scores normalized into [0,1].
type BaselineTraits struct {
	ID             string             `db:"id" json:"id"`
	UserID         string             `db:"user_id" json:"user_id"`
	TraitsP01      map[string]float64 `db:"traits_p01" json:"traits_p01"` // jsonb
	AdministeredAt time.Time          `db:"administered_at" json:"administered_at"`
}

// EngagementEvent is a fire-and-forget usage record.
type EngagementEvent struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Action    string         `db:"action" json:"action"`
	Metadata  map[string]any `db:"metadata" json:"metadata"` // jsonb
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
