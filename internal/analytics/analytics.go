// Package analytics computes rolling mood analytics over a window of recent
// check-ins. Everything here is pure: callers fetch the window, the engine
// only does arithmetic. Nothing is cached or persisted.
package analytics

import (
	"math"
	"time"

	"github.com/steadyapp/steady/internal/models"
)

// WindowSize is how many of the newest check-ins feed the rolling analytics.
const WindowSize = 7

// trendBand is the dead zone around zero for the trend split. A recent-half
// vs older-half mean difference inside ±trendBand stays "stable".
const trendBand = 0.3

// minTrendWindow is the smallest window for which a trend is computed.
const minTrendWindow = 4

// EnergyDistribution holds the percentage of the window spent in each bucket.
// Buckets are rounded independently, so totals may not sum to exactly 100.
type EnergyDistribution struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// Summary is the derived analytics block returned with each check-in.
type Summary struct {
	MoodAverage           *float64            `json:"mood_average"`
	MoodTrend             models.MoodTrend    `json:"mood_trend"`
	EnergyDistribution    EnergyDistribution  `json:"energy_distribution"`
	StreakDays            int                 `json:"streak_days"`
	TotalCheckins         int                 `json:"total_checkins"`
	RecentCheckinsCount   int                 `json:"recent_checkins_count"`
	InterventionTriggered bool                `json:"intervention_triggered"`
	TemplateType          *models.TemplateType `json:"template_type"`
}

// Summarize computes the full summary over a newest-first window.
// totalCheckins is the user's all-time count, not the window length.
// The intervention fields are left for the policy layer to fill in.
func Summarize(window []models.Checkin, totalCheckins int, now time.Time) Summary {
	s := Summary{
		MoodTrend: models.TrendStable,
	}
	if len(window) == 0 {
		return s
	}
	s.MoodAverage = MoodAverage(window)
	s.MoodTrend = Trend(window)
	s.EnergyDistribution = Distribution(window)
	s.StreakDays = StreakDays(window, now)
	s.TotalCheckins = totalCheckins
	s.RecentCheckinsCount = len(window)
	return s
}

// MoodAverage is the arithmetic mean of mood scores, nil for an empty window.
func MoodAverage(window []models.Checkin) *float64 {
	if len(window) == 0 {
		return nil
	}
	sum := 0
	for _, c := range window {
		sum += c.MoodScore
	}
	avg := float64(sum) / float64(len(window))
	return &avg
}

// Trend splits the window at floor(len/2) into a recent half (newest entries)
// and an older half, and compares their mean mood scores. The split is by
// index position, not calendar day. Windows shorter than four entries are
// always stable.
func Trend(window []models.Checkin) models.MoodTrend {
	if len(window) < minTrendWindow {
		return models.TrendStable
	}
	mid := len(window) / 2
	recent := meanMood(window[:mid])
	older := meanMood(window[mid:])

	diff := recent - older
	switch {
	case diff > trendBand:
		return models.TrendImproving
	case diff < -trendBand:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanMood(checkins []models.Checkin) float64 {
	sum := 0
	for _, c := range checkins {
		sum += c.MoodScore
	}
	return float64(sum) / float64(len(checkins))
}

// Distribution rounds each bucket's share of the window independently.
func Distribution(window []models.Checkin) EnergyDistribution {
	var d EnergyDistribution
	if len(window) == 0 {
		return d
	}
	var low, mid, high int
	for _, c := range window {
		switch c.EnergyLevel {
		case models.EnergyLow:
			low++
		case models.EnergyMid:
			mid++
		case models.EnergyHigh:
			high++
		}
	}
	total := float64(len(window))
	d.Low = int(math.Round(float64(low) / total * 100))
	d.Mid = int(math.Round(float64(mid) / total * 100))
	d.High = int(math.Round(float64(high) / total * 100))
	return d
}

// StreakDays counts consecutive calendar days with a check-in, ending today.
// The newest entry counts as today's check-in (streak starts at 1); the walk
// then steps back one day at a time over the newest-first window and stops at
// the first entry whose UTC date is not the expected prior day.
func StreakDays(window []models.Checkin, now time.Time) int {
	if len(window) == 0 {
		return 0
	}
	streak := 1
	expected := now.UTC().AddDate(0, 0, -1)
	for i := 1; i < len(window); i++ {
		if dateKey(window[i].CreatedAt) != dateKey(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DateRange bounds the page a summary was computed over.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// PageSummary is the analytics block for a paginated history read. It covers
// exactly the returned page, not the user's full history, and skips the
// streak (a page is not anchored to today).
type PageSummary struct {
	MoodAverage        float64            `json:"mood_average"`
	MoodTrend          models.MoodTrend   `json:"mood_trend"`
	EnergyDistribution EnergyDistribution `json:"energy_distribution"`
	TotalCheckins      int                `json:"total_checkins"`
	DateRange          DateRange          `json:"date_range"`
}

// SummarizePage computes page-scoped analytics for a non-empty, newest-first
// page. total is the count of all rows matching the query, not the page size.
func SummarizePage(page []models.Checkin, total int) PageSummary {
	avg := *MoodAverage(page)
	oldest := page[len(page)-1].CreatedAt
	newest := page[0].CreatedAt
	return PageSummary{
		MoodAverage:        math.Round(avg*10) / 10,
		MoodTrend:          Trend(page),
		EnergyDistribution: Distribution(page),
		TotalCheckins:      total,
		DateRange:          DateRange{From: &oldest, To: &newest},
	}
}
