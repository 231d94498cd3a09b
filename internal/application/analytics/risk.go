package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

// ProjectFilter narrows the project listing.
type ProjectFilter struct {
	Status   rollout.ProjectStatus
	Operator string
	Limit    int
	Offset   int
}

// ListProjects returns the project listing with current risk scores.
func (s *AnalyticsService) ListProjects(ctx context.Context, filter ProjectFilter) ([]ProjectSummary, error) {
	repoFilter := shared.Filter{
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		OrderBy: "created_at",
		Desc:    true,
	}

	var projects []rollout.Project
	var err error
	switch {
	case filter.Status != "":
		projects, err = s.projects.FindByStatus(ctx, filter.Status, repoFilter)
	case filter.Operator != "":
		projects, err = s.projects.FindByOperator(ctx, filter.Operator, repoFilter)
	default:
		projects, err = s.projects.FindAll(ctx, repoFilter)
	}
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	now := s.now()
	cfg := s.scoringConfig(ctx)
	summaries := make([]ProjectSummary, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		if filter.Operator != "" && p.Operator != filter.Operator {
			continue
		}
		summary, err := s.summarize(ctx, cfg, p, now)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// GetProject returns the listing row for a single project.
func (s *AnalyticsService) GetProject(ctx context.Context, id uuid.UUID) (*ProjectSummary, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.scoringConfig(ctx), p, s.now())
}

// ProjectRisk computes the full risk breakdown for one project.
func (s *AnalyticsService) ProjectRisk(ctx context.Context, id uuid.UUID) (*ProjectRiskView, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pauses, err := s.pauses.FindByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load pauses: %w", err)
	}

	now := s.now()
	cfg := s.scoringConfig(ctx)
	lateness := s.predictedLateness(ctx, p)
	score := s.riskFor(cfg, p, pauses, lateness, now)

	return &ProjectRiskView{
		ProjectID:             p.ID.String(),
		Score:                 score,
		DisplayTier:           cfg.DisplayTier(score, lateness),
		NetProgressDays:       p.NetProgressDays(pauses, now),
		ContractDays:          cfg.ContractDaysFor(p),
		IdleDays:              p.IdleDays,
		PredictedLatenessDays: lateness,
	}, nil
}
