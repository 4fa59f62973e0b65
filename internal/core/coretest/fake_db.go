// Package coretest provides an in-memory core.DbClient for tests, mirroring
// the Postgres client's observable behavior (newest-first ordering, the
// upgrade guard, not-found sentinels) without a database.
package coretest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/models"
)

type FakeDB struct {
	mu sync.Mutex

	Users         map[string]*models.User // keyed by email
	Checkins      []models.Checkin
	Interventions map[string]*models.Intervention
	Traits        map[string]*models.BaselineTraits // keyed by user id
	Events        []models.EngagementEvent

	// Error injection: when set, the matching method fails with it.
	CreateUserErr         error
	CreateCheckinErr      error
	RecentErr             error
	ListErr               error
	CountErr              error
	TraitsErr             error
	CreateInterventionErr error
	UpgradeErr            error
	FinalizeErr           error
}

func NewFakeDB() *FakeDB {
	return &FakeDB{
		Users:         map[string]*models.User{},
		Interventions: map[string]*models.Intervention{},
		Traits:        map[string]*models.BaselineTraits{},
	}
}

var _ core.DbClient = (*FakeDB)(nil)

func (f *FakeDB) CreateUser(_ context.Context, user *models.User) error {
	if f.CreateUserErr != nil {
		return f.CreateUserErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Users[user.Email]; ok {
		return core.ErrDuplicate
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	f.Users[user.Email] = user
	return nil
}

func (f *FakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Users[email], nil
}

func (f *FakeDB) CreateCheckin(_ context.Context, checkin *models.Checkin) error {
	if f.CreateCheckinErr != nil {
		return f.CreateCheckinErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now()
	}
	f.Checkins = append(f.Checkins, *checkin)
	return nil
}

func (f *FakeDB) RecentCheckins(_ context.Context, userID string, limit int) ([]models.Checkin, error) {
	if f.RecentErr != nil {
		return nil, f.RecentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.userCheckinsNewestFirst(userID, nil, nil)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeDB) ListCheckins(_ context.Context, userID string, q core.CheckinQuery) ([]models.Checkin, int, error) {
	if f.ListErr != nil {
		return nil, 0, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.userCheckinsNewestFirst(userID, q.DateFrom, q.DateTo)
	total := len(all)
	if q.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[q.Offset:]
	if len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, total, nil
}

func (f *FakeDB) CountCheckins(_ context.Context, userID string) (int, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userCheckinsNewestFirst(userID, nil, nil)), nil
}

func (f *FakeDB) userCheckinsNewestFirst(userID string, from, to *time.Time) []models.Checkin {
	var out []models.Checkin
	for _, c := range f.Checkins {
		if c.UserID != userID {
			continue
		}
		if from != nil && c.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && c.CreatedAt.After(*to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *FakeDB) CreateIntervention(_ context.Context, iv *models.Intervention) error {
	if f.CreateInterventionErr != nil {
		return f.CreateInterventionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now()
	}
	cp := *iv
	f.Interventions[iv.ID] = &cp
	return nil
}

func (f *FakeDB) UpgradeIntervention(_ context.Context, id string, tmpl models.TemplateType, payload models.MessagePayload, fallback bool) error {
	if f.UpgradeErr != nil {
		return f.UpgradeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.Interventions[id]
	if !ok {
		return nil
	}
	// Same guard as the SQL client: never overwrite an AI payload.
	if iv.AnalysisStatus == models.AnalysisReady && !iv.Fallback {
		return nil
	}
	iv.TemplateType = tmpl
	iv.MessagePayload = payload
	iv.Fallback = fallback
	iv.AnalysisStatus = models.AnalysisReady
	if iv.AnalysisReadyAt == nil {
		now := time.Now()
		iv.AnalysisReadyAt = &now
	}
	return nil
}

func (f *FakeDB) FinalizeIntervention(_ context.Context, id string) error {
	if f.FinalizeErr != nil {
		return f.FinalizeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.Interventions[id]
	if !ok {
		return nil
	}
	iv.AnalysisStatus = models.AnalysisReady
	if iv.AnalysisReadyAt == nil {
		now := time.Now()
		iv.AnalysisReadyAt = &now
	}
	return nil
}

func (f *FakeDB) GetInterventionByID(_ context.Context, id string) (*models.Intervention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.Interventions[id]
	if !ok {
		return nil, nil
	}
	cp := *iv
	return &cp, nil
}

func (f *FakeDB) LatestIntervention(_ context.Context, userID string) (*models.Intervention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestWhere(userID, func(*models.Intervention) bool { return true }), nil
}

func (f *FakeDB) LatestPendingFeedback(_ context.Context, userID string) (*models.Intervention, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := func(iv *models.Intervention) bool { return iv.FeedbackScore == nil }
	count := 0
	for _, iv := range f.Interventions {
		if iv.UserID == userID && pending(iv) {
			count++
		}
	}
	return f.latestWhere(userID, pending), count, nil
}

func (f *FakeDB) latestWhere(userID string, keep func(*models.Intervention) bool) *models.Intervention {
	var latest *models.Intervention
	for _, iv := range f.Interventions {
		if iv.UserID != userID || !keep(iv) {
			continue
		}
		if latest == nil || iv.CreatedAt.After(latest.CreatedAt) {
			latest = iv
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func (f *FakeDB) MarkInterventionViewed(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.Interventions[id]
	if !ok || iv.UserID != userID {
		return core.ErrNotFound
	}
	iv.Viewed = true
	return nil
}

func (f *FakeDB) SetInterventionFeedback(_ context.Context, id, userID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.Interventions[id]
	if !ok || iv.UserID != userID {
		return core.ErrNotFound
	}
	iv.FeedbackScore = &score
	return nil
}

func (f *FakeDB) LatestBaselineTraits(_ context.Context, userID string) (*models.BaselineTraits, error) {
	if f.TraitsErr != nil {
		return nil, f.TraitsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Traits[userID], nil
}

func (f *FakeDB) InsertEngagementEvent(_ context.Context, ev *models.EngagementEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, *ev)
	return nil
}

func (f *FakeDB) Close() error { return nil }
