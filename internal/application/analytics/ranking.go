package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/scoring"
	"github.com/rollout/backend/internal/domain/shared"
)

// defaultRankingWindowDays is the scoring window when the caller does not
// narrow it.
const defaultRankingWindowDays = 90

// Ranking scores every operator over the trailing window and returns the
// list in descending score order. windowDays <= 0 uses the default window.
func (s *AnalyticsService) Ranking(ctx context.Context, windowDays int) ([]scoring.PerformanceScore, error) {
	if windowDays <= 0 {
		windowDays = defaultRankingWindowDays
	}
	now := s.now()
	cutoff := now.AddDate(0, 0, -windowDays)
	cfg := s.scoringConfig(ctx)

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	byOperator := make(map[string]*scoring.OperatorWindow)
	order := make([]string, 0)
	windowFor := func(operator string) *scoring.OperatorWindow {
		w, ok := byOperator[operator]
		if !ok {
			w = &scoring.OperatorWindow{Operator: operator}
			byOperator[operator] = w
			order = append(order, operator)
		}
		return w
	}

	for i := range projects {
		p := &projects[i]
		if p.Operator == "" {
			continue
		}

		if p.IsInFlight() {
			windowFor(p.Operator).InFlight++
			continue
		}

		finish := p.EffectiveFinishedAt()
		if !p.IsCompleted() || finish == nil || finish.Before(cutoff) {
			continue
		}
		netDays, err := s.netDaysFor(ctx, p, now)
		if err != nil {
			return nil, err
		}
		w := windowFor(p.Operator)
		w.Completed = append(w.Completed, scoring.CompletedDelivery{
			Class:        p.Class,
			NetDays:      netDays,
			ContractDays: cfg.ContractDaysFor(p),
			HadRework:    p.HadRework,
			MonthlyValue: p.MonthlyValue,
		})
	}

	windows := make([]scoring.OperatorWindow, 0, len(order))
	for _, operator := range order {
		windows = append(windows, *byOperator[operator])
	}
	return cfg.RankOperators(windows), nil
}

// OperatorDetail returns one operator's ranking row plus the projects behind
// it. Returns shared.ErrNotFound when the operator has no projects at all.
func (s *AnalyticsService) OperatorDetail(ctx context.Context, operator string, windowDays int) (*OperatorDetail, error) {
	ranking, err := s.Ranking(ctx, windowDays)
	if err != nil {
		return nil, err
	}

	detail := &OperatorDetail{}
	found := false
	for i := range ranking {
		if ranking[i].Operator == operator {
			detail.Score = ranking[i]
			found = true
			break
		}
	}

	projects, err := s.projects.FindByOperator(ctx, operator, shared.Filter{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("load operator projects: %w", err)
	}
	if !found && len(projects) == 0 {
		return nil, shared.ErrNotFound
	}
	if !found {
		detail.Score = scoring.PerformanceScore{Operator: operator}
	}

	now := s.now()
	cfg := s.scoringConfig(ctx)
	for i := range projects {
		summary, err := s.summarize(ctx, cfg, &projects[i], now)
		if err != nil {
			return nil, err
		}
		detail.Projects = append(detail.Projects, *summary)
	}
	return detail, nil
}

// summarize builds the compact listing row for a project, including its
// current risk score.
func (s *AnalyticsService) summarize(ctx context.Context, cfg scoring.Config, p *rollout.Project, now time.Time) (*ProjectSummary, error) {
	pauses, err := s.pauses.FindByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load pauses for %s: %w", p.TaskRef, err)
	}
	risk := s.riskFor(cfg, p, pauses, s.predictedLateness(ctx, p), now)

	return &ProjectSummary{
		ID:           p.ID.String(),
		TaskRef:      p.TaskRef,
		StoreCode:    p.StoreCode,
		Name:         p.Name,
		Status:       p.Status,
		Operator:     p.Operator,
		Network:      p.Network,
		Class:        p.Class,
		MonthlyValue: p.MonthlyValue,
		NetDays:      p.NetProgressDays(pauses, now),
		IdleDays:     p.IdleDays,
		RiskScore:    risk.Total,
		RiskLevel:    risk.Level,
		StartedAt:    p.EffectiveStartedAt(),
		FinishedAt:   p.EffectiveFinishedAt(),
	}, nil
}
