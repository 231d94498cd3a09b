package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

// fallbackGoLiveMonths places a store with no dates at all one month out so
// it still shows on the board.
const fallbackGoLiveMonths = 1

// GoLiveForecast lists every store with its projected go-live date, sorted
// by date. Completed stores carry their actual go-live.
func (s *ForecastService) GoLiveForecast(ctx context.Context, filter GoLiveFilter) ([]GoLiveEntry, error) {
	now := s.now()
	defContract := s.defaultContractDays(ctx)

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	entries := make([]GoLiveEntry, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		if filter.Operator != "" && p.Operator != filter.Operator {
			continue
		}
		if filter.Network != "" && p.Network != filter.Network {
			continue
		}

		entry := s.goLiveEntry(p, now, defContract)
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.Year != 0 && entry.GoLiveDate.Year() != filter.Year {
			continue
		}
		if filter.Month != 0 && entry.GoLiveDate.Month() != filter.Month {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].GoLiveDate.Before(entries[j].GoLiveDate)
	})
	return entries, nil
}

// goLiveEntry resolves one store's projected go-live. The date precedence is
// manual go-live, then actual finish, then contractual deadline from the
// effective start, then a one-month placeholder.
func (s *ForecastService) goLiveEntry(p *rollout.Project, now time.Time, defContract int) GoLiveEntry {
	contract := p.ContractDays
	if contract <= 0 {
		contract = defContract
	}

	var goLive time.Time
	switch {
	case p.ManualGoLiveDate != nil:
		goLive = *p.ManualGoLiveDate
	case p.IsCompleted() && p.EffectiveFinishedAt() != nil:
		goLive = *p.EffectiveFinishedAt()
	case p.EffectiveStartedAt() != nil:
		goLive = p.EffectiveStartedAt().AddDate(0, 0, contract)
	default:
		goLive = now.AddDate(0, fallbackGoLiveMonths, 0)
	}

	status := GoLiveOnTrack
	switch {
	case p.IsCompleted():
		status = GoLiveDone
	case now.After(goLive):
		status = GoLiveLate
	}

	return GoLiveEntry{
		ProjectID:  p.ID.String(),
		StoreCode:  p.StoreCode,
		Name:       p.Name,
		Network:    p.Network,
		Operator:   p.Operator,
		Class:      p.Class,
		Stage:      p.Status,
		GoLiveDate: goLive,
		Month:      goLive.UTC().Format("2006-01"),
		Status:     status,
		StartedAt:  p.EffectiveStartedAt(),
	}
}

// GoLiveSummary aggregates the go-live listing per month for the board's
// header cards.
func (s *ForecastService) GoLiveSummary(ctx context.Context) ([]GoLiveMonthSummary, error) {
	entries, err := s.GoLiveForecast(ctx, GoLiveFilter{})
	if err != nil {
		return nil, err
	}

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	mrrByID := make(map[string]decimal.Decimal, len(projects))
	for i := range projects {
		mrrByID[projects[i].ID.String()] = projects[i].MonthlyValue
	}

	byMonth := make(map[string]*GoLiveMonthSummary)
	order := make([]string, 0)
	for _, e := range entries {
		sum, ok := byMonth[e.Month]
		if !ok {
			sum = &GoLiveMonthSummary{Month: e.Month, TotalMRR: decimal.Zero}
			byMonth[e.Month] = sum
			order = append(order, e.Month)
		}
		sum.TotalStores++
		if e.Class == rollout.ClassMatriz {
			sum.MatrizCount++
		} else {
			sum.FilialCount++
		}
		sum.TotalMRR = sum.TotalMRR.Add(mrrByID[e.ProjectID])
		if e.Status == GoLiveLate {
			sum.RiskCount++
		}
	}

	sort.Strings(order)
	summaries := make([]GoLiveMonthSummary, 0, len(order))
	for _, month := range order {
		summaries = append(summaries, *byMonth[month])
	}
	return summaries, nil
}
