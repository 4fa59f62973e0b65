package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/steadyapp/steady/internal/config"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return core.ErrDuplicate
	}
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Check-ins

func (c *DatabaseClient) CreateCheckin(ctx context.Context, checkin *models.Checkin) error {
	if checkin == nil {
		return errors.New("nil checkin")
	}
	const q = `
		INSERT INTO checkins (id, user_id, mood_score, energy_level, free_text, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		checkin.ID, checkin.UserID, checkin.MoodScore, checkin.EnergyLevel, checkin.FreeText,
	).Scan(&checkin.CreatedAt)
}

func (c *DatabaseClient) RecentCheckins(ctx context.Context, userID string, limit int) ([]models.Checkin, error) {
	const q = `
		SELECT id, user_id, mood_score, energy_level, free_text, created_at
		FROM checkins
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckins(rows)
}

func (c *DatabaseClient) ListCheckins(ctx context.Context, userID string, cq core.CheckinQuery) ([]models.Checkin, int, error) {
	where := "WHERE user_id = $1"
	args := []any{userID}
	if cq.DateFrom != nil {
		args = append(args, *cq.DateFrom)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if cq.DateTo != nil {
		args = append(args, *cq.DateTo)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int
	countQ := "SELECT count(*) FROM checkins " + where
	if err := c.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, cq.Limit, cq.Offset)
	pageQ := fmt.Sprintf(`
		SELECT id, user_id, mood_score, energy_level, free_text, created_at
		FROM checkins %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, pageQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanCheckins(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c *DatabaseClient) CountCheckins(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM checkins WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func scanCheckins(rows *sql.Rows) ([]models.Checkin, error) {
	var out []models.Checkin
	for rows.Next() {
		var ch models.Checkin
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.MoodScore, &ch.EnergyLevel, &ch.FreeText, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Interventions

func (c *DatabaseClient) CreateIntervention(ctx context.Context, iv *models.Intervention) error {
	if iv == nil {
		return errors.New("nil intervention")
	}
	payload, err := json.Marshal(iv.MessagePayload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	const q = `
		INSERT INTO interventions
			(id, user_id, checkin_id, template_type, message_payload, fallback, viewed, analysis_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		iv.ID, iv.UserID, iv.CheckinID, iv.TemplateType, payload, iv.Fallback, iv.Viewed, iv.AnalysisStatus,
	).Scan(&iv.CreatedAt)
}

// UpgradeIntervention writes the terminal upgrade. The guard clause keeps a
// row that already holds an AI payload (ready, fallback=false) from being
// overwritten, so repeating the transition cannot corrupt state.
func (c *DatabaseClient) UpgradeIntervention(ctx context.Context, id string, tmpl models.TemplateType, payload models.MessagePayload, fallback bool) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	const q = `
		UPDATE interventions
		SET template_type = $2,
		    message_payload = $3,
		    fallback = $4,
		    analysis_status = 'ready',
		    analysis_ready_at = COALESCE(analysis_ready_at, now())
		WHERE id = $1
		  AND NOT (analysis_status = 'ready' AND fallback = false)
	`
	_, err = c.db.ExecContext(ctx, q, id, tmpl, raw, fallback)
	return err
}

func (c *DatabaseClient) FinalizeIntervention(ctx context.Context, id string) error {
	const q = `
		UPDATE interventions
		SET analysis_status = 'ready',
		    analysis_ready_at = COALESCE(analysis_ready_at, now())
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

const interventionCols = `
	id, user_id, checkin_id, template_type, message_payload, fallback, viewed,
	feedback_score, analysis_status, analysis_ready_at, created_at
`

func (c *DatabaseClient) GetInterventionByID(ctx context.Context, id string) (*models.Intervention, error) {
	q := `SELECT ` + interventionCols + ` FROM interventions WHERE id = $1`
	return c.scanIntervention(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) LatestIntervention(ctx context.Context, userID string) (*models.Intervention, error) {
	q := `SELECT ` + interventionCols + `
		FROM interventions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return c.scanIntervention(c.db.QueryRowContext(ctx, q, userID))
}

func (c *DatabaseClient) LatestPendingFeedback(ctx context.Context, userID string) (*models.Intervention, int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM interventions WHERE user_id = $1 AND feedback_score IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + interventionCols + `
		FROM interventions
		WHERE user_id = $1 AND feedback_score IS NULL
		ORDER BY created_at DESC
		LIMIT 1`
	iv, err := c.scanIntervention(c.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		return nil, 0, err
	}
	return iv, count, nil
}

func (c *DatabaseClient) MarkInterventionViewed(ctx context.Context, id, userID string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE interventions SET viewed = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (c *DatabaseClient) SetInterventionFeedback(ctx context.Context, id, userID string, score int) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE interventions SET feedback_score = $3 WHERE id = $1 AND user_id = $2`, id, userID, score)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (c *DatabaseClient) scanIntervention(row *sql.Row) (*models.Intervention, error) {
	var (
		iv      models.Intervention
		payload []byte
	)
	err := row.Scan(
		&iv.ID, &iv.UserID, &iv.CheckinID, &iv.TemplateType, &payload, &iv.Fallback,
		&iv.Viewed, &iv.FeedbackScore, &iv.AnalysisStatus, &iv.AnalysisReadyAt, &iv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &iv.MessagePayload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &iv, nil
}

// Baseline traits

func (c *DatabaseClient) LatestBaselineTraits(ctx context.Context, userID string) (*models.BaselineTraits, error) {
	const q = `
		SELECT id, user_id, traits_p01, administered_at
		FROM baseline_traits
		WHERE user_id = $1
		ORDER BY administered_at DESC
		LIMIT 1
	`
	var (
		bt  models.BaselineTraits
		raw []byte
	)
	err := c.db.QueryRowContext(ctx, q, userID).Scan(&bt.ID, &bt.UserID, &raw, &bt.AdministeredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &bt.TraitsP01); err != nil {
		return nil, fmt.Errorf("unmarshal traits: %w", err)
	}
	return &bt, nil
}

// Engagement events

func (c *DatabaseClient) InsertEngagementEvent(ctx context.Context, ev *models.EngagementEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	const q = `
		INSERT INTO engagement_events (id, user_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, now())
	`
	_, err = c.db.ExecContext(ctx, q, ev.ID, ev.UserID, ev.Action, meta)
	return err
}
