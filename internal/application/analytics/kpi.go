package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/scoring"
	"github.com/rollout/backend/internal/domain/shared"
)

// trendMonths is how far back the monthly trend series reaches.
const trendMonths = 6

// idleAlertDays is the inactivity threshold above which a store counts as
// stalled on the KPI cards.
const idleAlertDays = 5

// KPICards computes the headline dashboard figures. The window defaults to
// the current calendar month; an operator filter narrows every figure.
func (s *AnalyticsService) KPICards(ctx context.Context, filter KPIFilter) (*KPICards, error) {
	now := s.now()
	from, to := filter.window(now)
	cfg := s.scoringConfig(ctx)

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	cards := &KPICards{
		MRRBacklog:    decimal.Zero,
		MRRDonePeriod: decimal.Zero,
	}

	var inFlight []rollout.Project
	var cycleSum float64
	var finishedInWindow, onTime int

	for i := range projects {
		p := &projects[i]
		if filter.Operator != "" && p.Operator != filter.Operator {
			continue
		}

		if p.IsInFlight() {
			inFlight = append(inFlight, *p)
			cards.WIPStores++
			cards.MRRBacklog = cards.MRRBacklog.Add(p.MonthlyValue)
			cards.TotalPointsWIP += cfg.ClassWeight(p.Class)
			if p.IdleDays > idleAlertDays {
				cards.IdleStoresCount++
			}
			switch p.Class {
			case rollout.ClassMatriz:
				cards.MatrizCount++
			default:
				cards.FilialCount++
			}
		}

		if !p.IsCompleted() {
			continue
		}
		finish := p.EffectiveFinishedAt()
		if finish == nil || finish.Before(from) || !finish.Before(to) {
			continue
		}

		finishedInWindow++
		cards.ThroughputPeriod++
		cards.MRRDonePeriod = cards.MRRDonePeriod.Add(p.MonthlyValue)
		cards.TotalPointsDone += cfg.ClassWeight(p.Class)

		netDays, err := s.netDaysFor(ctx, p, now)
		if err != nil {
			return nil, err
		}
		cycleSum += float64(netDays)
		if netDays <= cfg.ContractDaysFor(p) {
			onTime++
		}
	}

	if finishedInWindow > 0 {
		cards.CycleTimeAvg = round1(cycleSum / float64(finishedInWindow))
		cards.OTDPercentage = round1(float64(onTime) / float64(finishedInWindow) * 100)
	}

	if len(inFlight) > 0 {
		avg, err := s.avgRisk(ctx, cfg, inFlight, now)
		if err != nil {
			return nil, err
		}
		cards.AvgRiskScore = avg
	}

	return cards, nil
}

// MonthlyTrends returns the completed-work series for the trailing months,
// oldest month first, including the current month.
func (s *AnalyticsService) MonthlyTrends(ctx context.Context) ([]TrendPoint, error) {
	now := s.now()
	cfg := s.scoringConfig(ctx)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(trendMonths - 1), 0)

	completed, err := s.projects.FindCompletedBetween(ctx, first, now)
	if err != nil {
		return nil, fmt.Errorf("load completed projects: %w", err)
	}

	type bucket struct {
		point    TrendPoint
		cycleSum float64
		onTime   int
	}
	buckets := make(map[string]*bucket, trendMonths)
	order := make([]string, 0, trendMonths)
	for i := 0; i < trendMonths; i++ {
		m := first.AddDate(0, i, 0)
		key := monthKey(m)
		buckets[key] = &bucket{point: TrendPoint{Month: key, MRRDone: decimal.Zero}}
		order = append(order, key)
	}

	for i := range completed {
		p := &completed[i]
		finish := p.EffectiveFinishedAt()
		if finish == nil {
			continue
		}
		b, ok := buckets[monthKey(finish.UTC())]
		if !ok {
			continue
		}
		b.point.Completed++
		b.point.MRRDone = b.point.MRRDone.Add(p.MonthlyValue)
		b.point.Points += cfg.ClassWeight(p.Class)

		netDays, err := s.netDaysFor(ctx, p, now)
		if err != nil {
			return nil, err
		}
		b.cycleSum += float64(netDays)
		if netDays <= cfg.ContractDaysFor(p) {
			b.onTime++
		}
	}

	trends := make([]TrendPoint, 0, trendMonths)
	for _, key := range order {
		b := buckets[key]
		if b.point.Completed > 0 {
			b.point.AvgCycleDays = round1(b.cycleSum / float64(b.point.Completed))
			b.point.OTDPercentage = round1(float64(b.onTime) / float64(b.point.Completed) * 100)
		}
		trends = append(trends, b.point)
	}
	return trends, nil
}

// netDaysFor resolves the pause-adjusted progress days for one project.
func (s *AnalyticsService) netDaysFor(ctx context.Context, p *rollout.Project, now time.Time) (int, error) {
	pauses, err := s.pauses.FindByProject(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("load pauses for %s: %w", p.TaskRef, err)
	}
	return p.NetProgressDays(pauses, now), nil
}

// avgRisk computes the mean risk score over a set of in-flight projects.
// Pauses are fetched in one batch to avoid a query per project.
func (s *AnalyticsService) avgRisk(ctx context.Context, cfg scoring.Config, projects []rollout.Project, now time.Time) (float64, error) {
	ids := make([]uuid.UUID, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	pausesByProject, err := s.pauses.FindByProjects(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load pauses: %w", err)
	}

	var sum float64
	for i := range projects {
		p := &projects[i]
		score := s.riskFor(cfg, p, pausesByProject[p.ID], s.predictedLateness(ctx, p), now)
		sum += score.Total
	}
	return round1(sum / float64(len(projects))), nil
}
