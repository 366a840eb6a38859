package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// Insight thresholds.
const (
	DefaultProfileWindowDays = 90
	SpiralSampleSize         = 20
	SpiralMinSample          = 5
	TrendWindowDays          = 180
	topCompetitorCount       = 5
	spiralRecommendation     = "Consider stepping back and reviewing overall strategy"
)

// Reader is the read side of the decision log.
type Reader interface {
	DecisionsSince(ctx context.Context, businessID string, since time.Time) ([]model.DecisionRecord, error)
	RecentDecisions(ctx context.Context, businessID string, limit int) ([]model.DecisionRecord, error)
	DecisionsByCompetitor(ctx context.Context, businessID, competitor string, since time.Time) ([]model.DecisionRecord, error)
}

// Insights derives behavioural aggregates from the decision log.
type Insights struct {
	store Reader
	now   func() time.Time
}

// NewInsights creates an analyzer over store.
func NewInsights(store Reader) *Insights {
	return &Insights{store: store, now: time.Now}
}

// BuildProfile aggregates a business's decisions from the last windowDays.
// It returns nil when there are none.
func (in *Insights) BuildProfile(ctx context.Context, businessID string, windowDays int) (*model.BusinessProfile, error) {
	if windowDays <= 0 {
		windowDays = DefaultProfileWindowDays
	}

	since := in.now().UTC().AddDate(0, 0, -windowDays)
	records, err := in.store.DecisionsSince(ctx, businessID, since)
	if err != nil {
		return nil, fmt.Errorf("load decisions for profile: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	profile := &model.BusinessProfile{
		BusinessID:     businessID,
		TotalDecisions: len(records),
		StrategyCounts: make(map[model.StrategyType]int),
		UrgencyCounts: map[model.Urgency]int{
			model.UrgencyLow:    0,
			model.UrgencyMedium: 0,
			model.UrgencyHigh:   0,
		},
		LastDecisionAt: records[0].CreatedAt,
	}

	competitorCounts := make(map[string]int)
	for _, r := range records {
		profile.StrategyCounts[r.StrategyType]++
		profile.UrgencyCounts[r.Urgency]++
		competitorCounts[r.CompetitorName]++
	}

	profile.DominantUrgency = dominantUrgency(profile.UrgencyCounts)
	profile.TopCompetitors = topN(competitorCounts, topCompetitorCount)
	profile.Patterns = detectPatterns(records, len(competitorCounts))

	return profile, nil
}

// dominantUrgency is the majority bucket; ties go to the lower urgency.
func dominantUrgency(counts map[model.Urgency]int) model.Urgency {
	dominant := model.UrgencyLow
	for _, u := range []model.Urgency{model.UrgencyMedium, model.UrgencyHigh} {
		if counts[u] > counts[dominant] {
			dominant = u
		}
	}
	return dominant
}

func detectPatterns(records []model.DecisionRecord, uniqueCompetitors int) map[string]string {
	total := float64(len(records))

	var high, wait, pricing int
	for _, r := range records {
		if r.Urgency == model.UrgencyHigh {
			high++
		}
		switch r.StrategyType {
		case model.StrategyWait:
			wait++
		case model.StrategyPricing:
			pricing++
		}
	}

	diversity := model.LevelLow
	switch {
	case uniqueCompetitors > 5:
		diversity = model.LevelHigh
	case uniqueCompetitors > 2:
		diversity = model.LevelModerate
	}

	return map[string]string{
		model.PatternReactivity:          level(float64(high)/total, 0.5, 0.25),
		model.PatternWaitTendency:        level(float64(wait)/total, 0.6, 0.3),
		model.PatternPriceWarRisk:        level(float64(pricing)/total, 0.4, 0.2),
		model.PatternCompetitorDiversity: diversity,
	}
}

func level(share, high, moderate float64) string {
	switch {
	case share > high:
		return model.LevelHigh
	case share > moderate:
		return model.LevelModerate
	default:
		return model.LevelLow
	}
}

// topN returns up to n keys by descending count, ties broken by name.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// DetectReactiveSpiral inspects the latest decisions for frequent, urgent,
// single-competitor reactions. It returns nil when no spiral is found or the
// sample cannot be evaluated.
func (in *Insights) DetectReactiveSpiral(ctx context.Context, businessID string) (*model.SpiralWarning, error) {
	recent, err := in.store.RecentDecisions(ctx, businessID, SpiralSampleSize)
	if err != nil {
		return nil, fmt.Errorf("load recent decisions: %w", err)
	}
	if len(recent) < SpiralMinSample {
		return nil, nil
	}

	newest, oldest := recent[0].CreatedAt, recent[0].CreatedAt
	for _, r := range recent[1:] {
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
		if r.CreatedAt.Before(oldest) {
			oldest = r.CreatedAt
		}
	}

	spanDays := newest.Sub(oldest).Hours() / 24
	if spanDays <= 0 {
		return nil, nil
	}

	n := float64(len(recent))
	perWeek := n / spanDays * 7

	var high int
	competitorCounts := make(map[string]int)
	for _, r := range recent {
		if r.Urgency == model.UrgencyHigh {
			high++
		}
		competitorCounts[r.CompetitorName]++
	}
	highRate := float64(high) / n

	dominant := topN(competitorCounts, 1)[0]
	focus := float64(competitorCounts[dominant]) / n

	if perWeek <= 1.5 || highRate <= 0.6 || focus <= 0.5 {
		return nil, nil
	}

	severity := model.LevelModerate
	if perWeek > 3 {
		severity = model.LevelHigh
	}

	return &model.SpiralWarning{
		Status:             model.SpiralDetected,
		Severity:           severity,
		DecisionsPerWeek:   round2(perWeek),
		HighUrgencyRate:    round2(highRate),
		DominantCompetitor: dominant,
		Recommendation:     spiralRecommendation,
	}, nil
}

// CompetitorTrend summarises the last 180 days of decisions about competitor.
func (in *Insights) CompetitorTrend(ctx context.Context, businessID, competitor string) (model.CompetitorTrend, error) {
	since := in.now().UTC().AddDate(0, 0, -TrendWindowDays)
	records, err := in.store.DecisionsByCompetitor(ctx, businessID, competitor, since)
	if err != nil {
		return model.CompetitorTrend{}, fmt.Errorf("load competitor decisions: %w", err)
	}
	if len(records) == 0 {
		return model.CompetitorTrend{Status: model.TrendNoHistory}, nil
	}

	trend := model.CompetitorTrend{
		Status:        model.TrendTracked,
		TotalAnalyses: len(records),
		FirstSeen:     records[len(records)-1].CreatedAt,
		LastSeen:      records[0].CreatedAt,
	}

	strategyCounts := make(map[string]int)
	buckets := make(map[string]*urgencyBucket)

	for _, r := range records {
		strategyCounts[string(r.StrategyType)]++

		score := r.Urgency.Score()
		if score == 0 {
			continue
		}
		month := r.CreatedAt.UTC().Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &urgencyBucket{}
			buckets[month] = b
		}
		b.sum += score
		b.count++
	}
	trend.MostCommonResponse = model.StrategyType(topN(strategyCounts, 1)[0])

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	trend.Months = make([]model.MonthlyUrgency, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		trend.Months = append(trend.Months, model.MonthlyUrgency{
			Month:   m,
			Average: round2(float64(b.sum) / float64(b.count)),
			Count:   b.count,
		})
	}

	trend.UrgencyTrend = urgencyTrend(buckets, months)
	return trend, nil
}

// urgencyBucket accumulates urgency scores for one month.
type urgencyBucket struct {
	sum   int
	count int
}

func urgencyTrend(buckets map[string]*urgencyBucket, months []string) string {
	if len(months) < 2 {
		return model.TrendInsufficientData
	}

	first, last := buckets[months[0]], buckets[months[len(months)-1]]
	early := float64(first.sum) / float64(first.count)
	late := float64(last.sum) / float64(last.count)

	switch {
	case late > early+0.5:
		return model.TrendIncreasing
	case late < early-0.5:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
