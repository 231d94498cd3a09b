package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/shared"
)

// maxBottleneckRows caps the bottleneck listing.
const maxBottleneckRows = 15

// TeamCapacity computes the per-operator load table. Current load comes from
// in-flight stores weighted by class; the semester columns add everything
// the operator delivered since the semester started. Rows are sorted by
// total semester points, heaviest first.
func (s *AnalyticsService) TeamCapacity(ctx context.Context) ([]CapacityEntry, error) {
	now := s.now()
	semester := semesterStart(now)
	cfg := s.scoringConfig(ctx)

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	type accum struct {
		entry    CapacityEntry
		networks map[string]struct{}
	}
	byOperator := make(map[string]*accum)
	accumFor := func(operator string) *accum {
		a, ok := byOperator[operator]
		if !ok {
			a = &accum{
				entry:    CapacityEntry{Operator: operator, MaxPoints: cfg.CapacityCeiling},
				networks: make(map[string]struct{}),
			}
			byOperator[operator] = a
		}
		return a
	}

	for i := range projects {
		p := &projects[i]
		if p.Operator == "" {
			continue
		}

		if p.IsInFlight() {
			a := accumFor(p.Operator)
			a.entry.CurrentPoints += cfg.ClassWeight(p.Class)
			a.entry.StoreCount++
			if p.Network != "" {
				a.networks[p.Network] = struct{}{}
			}
			continue
		}

		finish := p.EffectiveFinishedAt()
		if p.IsCompleted() && finish != nil && !finish.Before(semester) {
			a := accumFor(p.Operator)
			a.entry.FinishedPointsSemester += cfg.ClassWeight(p.Class)
			a.entry.FinishedCountSemester++
		}
	}

	entries := make([]CapacityEntry, 0, len(byOperator))
	for _, a := range byOperator {
		e := a.entry
		e.TotalSemesterPoints = e.CurrentPoints + e.FinishedPointsSemester
		e.UtilizationPct = cfg.Utilization(e.CurrentPoints)
		e.LoadLevel = cfg.ClassifyLoad(e.UtilizationPct)
		e.ActiveNetworks = make([]string, 0, len(a.networks))
		for network := range a.networks {
			e.ActiveNetworks = append(e.ActiveNetworks, network)
		}
		sort.Strings(e.ActiveNetworks)
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSemesterPoints != entries[j].TotalSemesterPoints {
			return entries[i].TotalSemesterPoints > entries[j].TotalSemesterPoints
		}
		return entries[i].Operator < entries[j].Operator
	})
	return entries, nil
}

// Bottlenecks aggregates accumulated time per process stage across every
// project's steps, heaviest stages first.
func (s *AnalyticsService) Bottlenecks(ctx context.Context) ([]BottleneckEntry, error) {
	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	ids := make([]uuid.UUID, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	stepsByProject, err := s.steps.FindByProjects(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}

	byStage := make(map[string]*BottleneckEntry)
	closedCount := make(map[string]int)
	for _, steps := range stepsByProject {
		for i := range steps {
			step := &steps[i]
			if step.Stage == "" {
				continue
			}
			e, ok := byStage[step.Stage]
			if !ok {
				e = &BottleneckEntry{Stage: step.Stage}
				byStage[step.Stage] = e
			}
			e.StepCount++
			e.Reopens += step.ReopenCount
			if step.IsClosed() {
				e.TotalDays += step.TotalDays
				closedCount[step.Stage]++
			} else {
				e.OpenSteps++
				if step.IdleDays > e.MaxIdleDays {
					e.MaxIdleDays = step.IdleDays
				}
			}
		}
	}

	entries := make([]BottleneckEntry, 0, len(byStage))
	for stage, e := range byStage {
		e.TotalDays = round1(e.TotalDays)
		if n := closedCount[stage]; n > 0 {
			e.AvgDays = round1(e.TotalDays / float64(n))
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalDays != entries[j].TotalDays {
			return entries[i].TotalDays > entries[j].TotalDays
		}
		return entries[i].Stage < entries[j].Stage
	})
	if len(entries) > maxBottleneckRows {
		entries = entries[:maxBottleneckRows]
	}
	return entries, nil
}
