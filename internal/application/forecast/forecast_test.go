package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domforecast "github.com/rollout/backend/internal/domain/forecast"
	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/persistence"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type forecastEnv struct {
	svc       *ForecastService
	predictor *PredictorService
	projects  rollout.ProjectRepository
	steps     rollout.StepRepository
	settings  rollout.SettingRepository
}

func newForecastEnv(t *testing.T) *forecastEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	env := &forecastEnv{
		projects: persistence.NewGormProjectRepository(db),
		steps:    persistence.NewGormStepRepository(db),
		settings: persistence.NewGormSettingRepository(db),
	}
	env.svc = NewForecastService(env.projects, env.settings, 6, nil)
	env.svc.now = func() time.Time { return testNow }

	env.predictor = NewPredictorService(env.projects, env.steps,
		[]string{"VISTORIA", "TREINAMENTO"}, nil, 5, nil)
	env.predictor.now = func() time.Time { return testNow }
	return env
}

func (e *forecastEnv) seedProject(t *testing.T, taskRef string, mutate func(*rollout.Project)) *rollout.Project {
	t.Helper()
	p, err := rollout.NewProject(taskRef, "Loja "+taskRef)
	require.NoError(t, err)
	mutate(p)
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

func (e *forecastEnv) seedClosedStep(t *testing.T, projectID uuid.UUID, taskRef, stage string, days float64) {
	t.Helper()
	created := testNow.AddDate(0, 0, -60)
	end := created.Add(time.Duration(days*24) * time.Hour)
	step := &rollout.TaskStep{
		BaseEntity:       shared.NewBaseEntity(),
		TaskRef:          taskRef,
		ProjectID:        projectID,
		Stage:            stage,
		Name:             stage + " " + taskRef,
		TrackerCreatedAt: &created,
		EndAt:            &end,
		TotalDays:        days,
	}
	require.NoError(t, e.steps.Upsert(context.Background(), step))
}

func at(t time.Time) *time.Time { return &t }

func TestFinancialForecast(t *testing.T) {
	env := newForecastEnv(t)

	// Two recent deliveries, both 50-day cycles, anchor the projection.
	env.seedProject(t, "done-mar", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.MonthlyValue = decimal.NewFromInt(1000)
		p.TrackerCreatedAt = at(time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC))
		p.ReportedClosedAt = at(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	})
	env.seedProject(t, "done-jan", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.MonthlyValue = decimal.NewFromInt(600)
		p.TrackerCreatedAt = at(time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC))
		p.ReportedClosedAt = at(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	})
	// Fresh WIP: started 10 days ago, lands 40 days out in April.
	env.seedProject(t, "wip-fresh", func(p *rollout.Project) {
		p.MonthlyValue = decimal.NewFromInt(2000)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -10))
	})
	// Overdue WIP: the naive estimate fell in the past, re-anchored to
	// 15 days out, still inside March.
	env.seedProject(t, "wip-overdue", func(p *rollout.Project) {
		p.MonthlyValue = decimal.NewFromInt(800)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -120))
	})

	points, err := env.svc.FinancialForecast(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, points, 10) // 3 trailing + current + 6 leading

	byMonth := map[string]FinancialPoint{}
	for _, p := range points {
		byMonth[p.Month] = p
	}

	assert.Equal(t, "2025-12", points[0].Month)
	assert.Equal(t, "2026-09", points[len(points)-1].Month)
	assert.False(t, byMonth["2026-02"].IsFuture)
	assert.True(t, byMonth["2026-03"].IsFuture)

	assert.True(t, byMonth["2026-01"].Realized.Equal(decimal.NewFromInt(600)))
	assert.True(t, byMonth["2026-03"].Realized.Equal(decimal.NewFromInt(1000)))

	assert.True(t, byMonth["2026-04"].Projected.Equal(decimal.NewFromInt(2000)),
		"fresh WIP should land in April, got %s", byMonth["2026-04"].Projected)
	assert.True(t, byMonth["2026-03"].Projected.Equal(decimal.NewFromInt(800)),
		"overdue WIP should re-anchor into March, got %s", byMonth["2026-03"].Projected)
}

func TestFinancialForecastFallbackCycle(t *testing.T) {
	env := newForecastEnv(t)

	// No completed history at all: the 90-day default cycle applies.
	env.seedProject(t, "wip-only", func(p *rollout.Project) {
		p.MonthlyValue = decimal.NewFromInt(500)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -5))
	})

	points, err := env.svc.FinancialForecast(context.Background(), 6)
	require.NoError(t, err)

	// Start -5d + 90d lands 85 days out, in June.
	var june FinancialPoint
	for _, p := range points {
		if p.Month == "2026-06" {
			june = p
		}
	}
	assert.True(t, june.Projected.Equal(decimal.NewFromInt(500)), "got %s", june.Projected)
}

func TestGoLiveForecast(t *testing.T) {
	env := newForecastEnv(t)

	env.seedProject(t, "live-1", func(p *rollout.Project) {
		p.Operator = "ana"
		p.Status = rollout.StatusDone
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -80))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -20))
	})
	env.seedProject(t, "late-1", func(p *rollout.Project) {
		p.Operator = "ana"
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -100)) // due 10 days ago
	})
	env.seedProject(t, "ontrack-1", func(p *rollout.Project) {
		p.Operator = "bruno"
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -10)) // due 80 days out
	})
	env.seedProject(t, "dateless-1", func(p *rollout.Project) {
		p.Operator = "bruno"
	})

	entries, err := env.svc.GoLiveForecast(context.Background(), GoLiveFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byRef := map[string]GoLiveEntry{}
	for _, e := range entries {
		byRef[e.Name] = e
	}
	assert.Equal(t, GoLiveDone, byRef["Loja live-1"].Status)
	assert.Equal(t, GoLiveLate, byRef["Loja late-1"].Status)
	assert.Equal(t, GoLiveOnTrack, byRef["Loja ontrack-1"].Status)
	assert.Equal(t, GoLiveOnTrack, byRef["Loja dateless-1"].Status)
	assert.Equal(t, "2026-04", byRef["Loja dateless-1"].Month) // one-month placeholder

	// Sorted by projected date: overdue first, placeholder before the
	// far-out contractual date.
	assert.Equal(t, "Loja live-1", entries[0].Name)
	assert.Equal(t, "Loja late-1", entries[1].Name)

	late, err := env.svc.GoLiveForecast(context.Background(), GoLiveFilter{Status: GoLiveLate})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "Loja late-1", late[0].Name)

	bruno, err := env.svc.GoLiveForecast(context.Background(), GoLiveFilter{Operator: "bruno"})
	require.NoError(t, err)
	assert.Len(t, bruno, 2)
}

func TestFinancialForecastHonorsLeadMonthsSetting(t *testing.T) {
	env := newForecastEnv(t)
	setting, err := rollout.NewSetting(rollout.SettingLeadMonths, "2")
	require.NoError(t, err)
	require.NoError(t, env.settings.Upsert(context.Background(), setting))

	points, err := env.svc.FinancialForecast(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, points, 6) // 3 trailing + current + 2 leading
	assert.Equal(t, "2026-05", points[len(points)-1].Month)
}

func TestGoLiveForecastManualDateWinsOverActualFinish(t *testing.T) {
	env := newForecastEnv(t)

	manual := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	env.seedProject(t, "manual-1", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.ManualGoLiveDate = at(manual)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -80))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -20))
	})

	entries, err := env.svc.GoLiveForecast(context.Background(), GoLiveFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, manual.Equal(entries[0].GoLiveDate))
	assert.Equal(t, "2026-05", entries[0].Month)
	assert.Equal(t, GoLiveDone, entries[0].Status)
}

func TestGoLiveForecastHonorsContractDaysSetting(t *testing.T) {
	env := newForecastEnv(t)
	setting, err := rollout.NewSetting(rollout.SettingContractDays, "30")
	require.NoError(t, err)
	require.NoError(t, env.settings.Upsert(context.Background(), setting))

	// Started 40 days ago with no explicit contract: the 30-day override
	// makes it late where the built-in 90 would not.
	env.seedProject(t, "short-1", func(p *rollout.Project) {
		p.ContractDays = 0
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -40))
	})

	entries, err := env.svc.GoLiveForecast(context.Background(), GoLiveFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, GoLiveLate, entries[0].Status)
}

func TestGoLiveSummary(t *testing.T) {
	env := newForecastEnv(t)

	env.seedProject(t, "sum-1", func(p *rollout.Project) {
		p.Class = rollout.ClassMatriz
		p.MonthlyValue = decimal.NewFromInt(1500)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -100)) // late
	})
	env.seedProject(t, "sum-2", func(p *rollout.Project) {
		p.MonthlyValue = decimal.NewFromInt(700)
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -95)) // late, same month
	})

	summaries, err := env.svc.GoLiveSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, 2, s.TotalStores)
	assert.Equal(t, 1, s.MatrizCount)
	assert.Equal(t, 1, s.FilialCount)
	assert.Equal(t, 2, s.RiskCount)
	assert.True(t, s.TotalMRR.Equal(decimal.NewFromInt(2200)))
}

func TestPredict(t *testing.T) {
	env := newForecastEnv(t)
	ctx := context.Background()

	history := env.seedProject(t, "hist-1", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -120))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -40))
	})
	for i, days := range []float64{3, 4, 4, 5, 4, 4} {
		env.seedClosedStep(t, history.ID, "vist-"+string(rune('a'+i)), "VISTORIA", days)
	}
	env.seedClosedStep(t, history.ID, "trein-a", "TREINAMENTO", 2)
	env.seedClosedStep(t, history.ID, "trein-b", "TREINAMENTO", 2)

	subject := env.seedProject(t, "subject-1", func(p *rollout.Project) {
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -100)) // due 10 days ago
	})
	env.seedClosedStep(t, subject.ID, "subj-vist", "VISTORIA", 4)

	pred, err := env.predictor.Predict(ctx, subject.ID)
	require.NoError(t, err)

	assert.False(t, pred.Concluded)
	require.Len(t, pred.Stages, 2)
	assert.Equal(t, domforecast.StageDone, pred.Stages[0].Progress)
	assert.Equal(t, domforecast.StageTodo, pred.Stages[1].Progress)

	// Only the 2-day training remains; due date passed 10 days ago.
	assert.InDelta(t, 2.0, pred.RemainingDaysP50, 0.01)
	assert.Equal(t, 12, pred.LatenessDays)
	assert.Equal(t, domforecast.ConfidenceMedium, pred.Confidence) // thin training history
}

func TestPredictCompletedProject(t *testing.T) {
	env := newForecastEnv(t)

	done := env.seedProject(t, "done-1", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -50))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -1))
	})

	pred, err := env.predictor.Predict(context.Background(), done.ID)
	require.NoError(t, err)
	assert.True(t, pred.Concluded)
	assert.Equal(t, 0, pred.LatenessDays)
	assert.Equal(t, domforecast.ConfidenceHigh, pred.Confidence)
}

func TestPredictedLatenessDays(t *testing.T) {
	env := newForecastEnv(t)
	ctx := context.Background()

	subject := env.seedProject(t, "late-subject", func(p *rollout.Project) {
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -100))
	})

	lateness := env.predictor.PredictedLatenessDays(ctx, subject)
	assert.Greater(t, lateness, 0.0)

	done := env.seedProject(t, "done-subject", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -50))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -2))
	})
	assert.Zero(t, env.predictor.PredictedLatenessDays(ctx, done))
}

func TestRefreshStatsPicksUpNewHistory(t *testing.T) {
	env := newForecastEnv(t)
	ctx := context.Background()

	host := env.seedProject(t, "host-1", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -120))
		p.ReportedClosedAt = at(testNow.AddDate(0, 0, -40))
	})
	env.seedClosedStep(t, host.ID, "v-1", "VISTORIA", 10)

	subject := env.seedProject(t, "fresh-1", func(p *rollout.Project) {
		p.TrackerCreatedAt = at(testNow.AddDate(0, 0, -1))
	})

	before, err := env.predictor.Predict(ctx, subject.ID)
	require.NoError(t, err)

	// New history lands after the cache was built; it only shows up once
	// the statistics are explicitly refreshed.
	env.seedClosedStep(t, host.ID, "v-2", "VISTORIA", 20)
	cached, err := env.predictor.Predict(ctx, subject.ID)
	require.NoError(t, err)
	assert.InDelta(t, before.RemainingDaysP50, cached.RemainingDaysP50, 0.01)

	require.NoError(t, env.predictor.RefreshStats(ctx))
	after, err := env.predictor.Predict(ctx, subject.ID)
	require.NoError(t, err)
	assert.Greater(t, after.RemainingDaysP50, before.RemainingDaysP50)
}
