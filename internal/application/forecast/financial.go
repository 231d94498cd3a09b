package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rollout/backend/internal/domain/shared"
)

const (
	// trailingMonths is how far back the financial forecast shows realized MRR.
	trailingMonths = 3

	// defaultLeadMonths is the projection horizon when none is configured.
	defaultLeadMonths = 6

	// cycleWindowDays is the trailing window the average cycle time is
	// derived from.
	cycleWindowDays = 90

	// fallbackCycleDays stands in when no recent deliveries exist.
	fallbackCycleDays = 90

	// reanchorDays pushes an already-overdue estimate this far past today.
	reanchorDays = 15
)

// FinancialForecast projects recurring revenue by month: realized MRR for
// stores that went live, projected MRR for work in progress allocated to its
// estimated completion month. The range spans three trailing months through
// leadMonths ahead; leadMonths <= 0 uses the configured default.
func (s *ForecastService) FinancialForecast(ctx context.Context, leadMonths int) ([]FinancialPoint, error) {
	if leadMonths <= 0 {
		leadMonths = s.effectiveLeadMonths(ctx)
	}
	now := s.now()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	avgCycle, err := s.trailingAvgCycleDays(ctx, now)
	if err != nil {
		return nil, err
	}

	first := currentMonth.AddDate(0, -trailingMonths, 0)
	months := trailingMonths + leadMonths + 1
	keys := make([]string, 0, months)
	points := make(map[string]*FinancialPoint, months)
	for i := 0; i < months; i++ {
		m := first.AddDate(0, i, 0)
		key := m.Format("2006-01")
		keys = append(keys, key)
		points[key] = &FinancialPoint{
			Month:    key,
			IsFuture: !m.Before(currentMonth),
		}
	}

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	for i := range projects {
		p := &projects[i]

		if p.IsCompleted() {
			finish := p.EffectiveFinishedAt()
			if finish == nil {
				continue
			}
			if pt, ok := points[finish.UTC().Format("2006-01")]; ok {
				pt.Realized = pt.Realized.Add(p.MonthlyValue)
			}
			continue
		}
		if !p.IsInFlight() {
			continue
		}

		start := now
		if at := p.EffectiveStartedAt(); at != nil {
			start = *at
		}
		projected := start.AddDate(0, 0, avgCycle)
		if projected.Before(now) {
			// Overdue estimate, re-anchored to the near future.
			projected = now.AddDate(0, 0, reanchorDays)
		}
		if pt, ok := points[projected.UTC().Format("2006-01")]; ok {
			pt.Projected = pt.Projected.Add(p.MonthlyValue)
		}
	}

	result := make([]FinancialPoint, 0, months)
	for _, key := range keys {
		result = append(result, *points[key])
	}
	return result, nil
}

// trailingAvgCycleDays computes the mean calendar cycle time over deliveries
// finished in the trailing window, falling back to the contract default when
// the window is empty.
func (s *ForecastService) trailingAvgCycleDays(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -cycleWindowDays)
	recent, err := s.projects.FindCompletedBetween(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("load recent deliveries: %w", err)
	}

	totalDays, count := 0, 0
	for i := range recent {
		p := &recent[i]
		start := p.EffectiveStartedAt()
		end := p.EffectiveFinishedAt()
		if start == nil || end == nil {
			continue
		}
		totalDays += int(end.Sub(*start).Hours() / 24)
		count++
	}
	if count == 0 {
		return fallbackCycleDays, nil
	}
	return totalDays / count, nil
}
