package core

import (
	"context"
	"errors"
	"time"

	"github.com/steadyapp/steady/internal/models"
)

// ErrNotFound is returned by row-targeted updates that matched nothing (the
// id does not exist or belongs to another user).
var ErrNotFound = errors.New("row not found")

// ErrDuplicate is returned by CreateUser when the email is already taken,
// so handlers can tell a conflict from a store failure.
var ErrDuplicate = errors.New("duplicate row")

// CheckinQuery filters and paginates a user's check-in history.
// Limit and Offset are assumed pre-clamped by the caller.
type CheckinQuery struct {
	Limit    int
	Offset   int
	DateFrom *time.Time
	DateTo   *time.Time
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateCheckin(ctx context.Context, checkin *models.Checkin) error
	// RecentCheckins returns up to limit check-ins for the user, newest first.
	RecentCheckins(ctx context.Context, userID string, limit int) ([]models.Checkin, error)
	// ListCheckins returns one page plus the total row count for the query.
	ListCheckins(ctx context.Context, userID string, q CheckinQuery) ([]models.Checkin, int, error)
	CountCheckins(ctx context.Context, userID string) (int, error)

	CreateIntervention(ctx context.Context, iv *models.Intervention) error
	// UpgradeIntervention applies the terminal upgrade: new payload, template
	// and fallback flag, analysis_status ready. It must never revert a row
	// that already carries an AI payload (ready with fallback=false).
	UpgradeIntervention(ctx context.Context, id string, tmpl models.TemplateType, payload models.MessagePayload, fallback bool) error
	// FinalizeIntervention advances analysis_status to ready without touching
	// the payload. Safe to call more than once.
	FinalizeIntervention(ctx context.Context, id string) error
	GetInterventionByID(ctx context.Context, id string) (*models.Intervention, error)
	LatestIntervention(ctx context.Context, userID string) (*models.Intervention, error)
	// LatestPendingFeedback returns the most recent intervention with no
	// feedback score, plus the total count of such rows.
	LatestPendingFeedback(ctx context.Context, userID string) (*models.Intervention, int, error)
	MarkInterventionViewed(ctx context.Context, id, userID string) error
	SetInterventionFeedback(ctx context.Context, id, userID string, score int) error

	LatestBaselineTraits(ctx context.Context, userID string) (*models.BaselineTraits, error)

	InsertEngagementEvent(ctx context.Context, ev *models.EngagementEvent) error

	Close() error
}

// EngagementSink accepts fire-and-forget usage events. Implementations must
// swallow and log their own failures; Track never blocks the caller's request.
type EngagementSink interface {
	Track(ev models.EngagementEvent)
}
