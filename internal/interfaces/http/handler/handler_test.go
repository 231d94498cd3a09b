package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	analyticsapp "github.com/rollout/backend/internal/application/analytics"
	forecastapp "github.com/rollout/backend/internal/application/forecast"
	"github.com/rollout/backend/internal/application/ingestion"
	portfolioapp "github.com/rollout/backend/internal/application/portfolio"
	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/infrastructure/cache"
	"github.com/rollout/backend/internal/infrastructure/config"
	"github.com/rollout/backend/internal/infrastructure/persistence"
	"github.com/rollout/backend/internal/infrastructure/tracker"
	"github.com/rollout/backend/internal/interfaces/http/middleware"
	"github.com/rollout/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubTrackerClient satisfies the ingestion client interface with canned data
type stubTrackerClient struct {
	tasks map[string][]tracker.Task
}

func (s *stubTrackerClient) ListTasks(_ context.Context, listID string, _ tracker.ListTasksOptions) ([]tracker.Task, error) {
	return s.tasks[listID], nil
}

func (s *stubTrackerClient) FindFieldID(_ context.Context, _, _ string) (string, error) {
	return "field-1", nil
}

type serverEnv struct {
	engine   *gin.Engine
	projects rollout.ProjectRepository
	pauses   rollout.PauseRepository
	steps    rollout.StepRepository
}

// newServerEnv stands up the full route surface against an in-memory store,
// wired the same way the server binary does it.
func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	projects := persistence.NewGormProjectRepository(db)
	pauses := persistence.NewGormPauseRepository(db)
	steps := persistence.NewGormStepRepository(db)
	settings := persistence.NewGormSettingRepository(db)
	snapshots := persistence.NewGormSnapshotRepository(db)
	syncRepo := persistence.NewGormSyncRepository(db)

	stageOrder := []string{"VISTORIA", "TREINAMENTO"}
	predictor := forecastapp.NewPredictorService(projects, steps, stageOrder, nil, 5, nil)
	analytics := analyticsapp.NewAnalyticsService(projects, pauses, steps, settings, predictor, config.ScoringConfig{}, nil)
	snapshotSvc := analyticsapp.NewSnapshotService(projects, pauses, snapshots, analytics, nil)
	forecastSvc := forecastapp.NewForecastService(projects, settings, 0, nil)
	portfolioSvc := portfolioapp.NewService(projects, pauses, settings, nil)
	syncSvc := ingestion.NewSyncService(projects, steps, syncRepo, &stubTrackerClient{},
		config.TrackerConfig{}, config.SyncConfig{}, nil)
	narratives := cache.NewInMemoryNarrativeCache(time.Minute)
	t.Cleanup(func() { _ = narratives.Close() })

	engine := gin.New()
	engine.Use(middleware.RequestID())

	analyticsHandler := NewAnalyticsHandler(analytics)
	projectHandler := NewProjectHandler(analytics, predictor, portfolioSvc)
	forecastHandler := NewForecastHandler(forecastSvc)
	syncHandler := NewSyncHandler(syncSvc)
	snapshotHandler := NewSnapshotHandler(snapshotSvc)
	settingHandler := NewSettingHandler(portfolioSvc)
	narrativeHandler := NewNarrativeHandler(projects, narratives)
	systemHandler := NewSystemHandler()

	r := router.NewRouter(engine)

	analyticsRoutes := router.NewDomainGroup("analytics", "/analytics")
	analyticsRoutes.GET("/kpis", analyticsHandler.KPIs)
	analyticsRoutes.GET("/ranking", analyticsHandler.Ranking)
	analyticsRoutes.GET("/ranking/:name", analyticsHandler.OperatorDetail)
	analyticsRoutes.GET("/capacity", analyticsHandler.Capacity)
	analyticsRoutes.GET("/trends", analyticsHandler.Trends)
	analyticsRoutes.GET("/bottlenecks", analyticsHandler.Bottlenecks)
	r.Register(analyticsRoutes)

	projectRoutes := router.NewDomainGroup("projects", "/projects")
	projectRoutes.GET("", projectHandler.List)
	projectRoutes.GET("/:id", projectHandler.GetByID)
	projectRoutes.GET("/:id/risk", projectHandler.Risk)
	projectRoutes.GET("/:id/prediction", projectHandler.Prediction)
	projectRoutes.GET("/:id/pauses", projectHandler.ListPauses)
	projectRoutes.POST("/:id/pauses", projectHandler.OpenPause)
	projectRoutes.PUT("/:id/pauses/:pauseID/close", projectHandler.ClosePause)
	projectRoutes.PUT("/:id/overrides", projectHandler.ApplyOverrides)
	projectRoutes.GET("/:id/narrative", narrativeHandler.Get)
	projectRoutes.PUT("/:id/narrative", narrativeHandler.Put)
	projectRoutes.DELETE("/:id/narrative", narrativeHandler.Delete)
	r.Register(projectRoutes)

	forecastRoutes := router.NewDomainGroup("forecast", "/forecast")
	forecastRoutes.GET("/financial", forecastHandler.Financial)
	forecastRoutes.GET("/golive", forecastHandler.GoLive)
	forecastRoutes.GET("/golive/summary", forecastHandler.GoLiveSummary)
	r.Register(forecastRoutes)

	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("", syncHandler.Trigger)
	syncRoutes.GET("/status", syncHandler.Status)
	r.Register(syncRoutes)

	snapshotRoutes := router.NewDomainGroup("snapshots", "/snapshots")
	snapshotRoutes.POST("", snapshotHandler.Capture)
	snapshotRoutes.GET("", snapshotHandler.History)
	snapshotRoutes.GET("/projects/:id", snapshotHandler.ProjectHistory)
	r.Register(snapshotRoutes)

	settingRoutes := router.NewDomainGroup("settings", "/settings")
	settingRoutes.GET("", settingHandler.List)
	settingRoutes.PUT("", settingHandler.Update)
	r.Register(settingRoutes)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	return &serverEnv{
		engine:   engine,
		projects: projects,
		pauses:   pauses,
		steps:    steps,
	}
}

// envelope mirrors the wire response shape for decoding in assertions
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func (e *serverEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (e *serverEnv) seedProject(t *testing.T, taskRef string, mutate func(*rollout.Project)) *rollout.Project {
	t.Helper()
	p, err := rollout.NewProject(taskRef, "Loja "+taskRef)
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

func seedBasicPortfolio(t *testing.T, env *serverEnv) (wip, done *rollout.Project) {
	now := time.Now().UTC()
	started := now.AddDate(0, 0, -40)
	finished := now.AddDate(0, 0, -5)

	wip = env.seedProject(t, "task-wip", func(p *rollout.Project) {
		p.Status = rollout.StatusInProgress
		p.StoreCode = "F0H-100"
		p.Operator = "ana"
		p.Network = "Grupo Azul"
		p.ReportedStartAt = &started
		p.ContractDays = 75
		p.MonthlyValue = decimal.NewFromInt(1500)
		p.IdleDays = 3
	})
	done = env.seedProject(t, "task-done", func(p *rollout.Project) {
		p.Status = rollout.StatusDone
		p.StoreCode = "F0H-200"
		p.Operator = "ana"
		p.Network = "Grupo Azul"
		p.ReportedStartAt = &started
		p.ReportedClosedAt = &finished
		p.ContractDays = 75
		p.MonthlyValue = decimal.NewFromInt(900)
	})
	return wip, done
}

func TestKPIsEndpoint(t *testing.T) {
	env := newServerEnv(t)
	seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, "/api/v1/analytics/kpis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	var cards analyticsapp.KPICards
	require.NoError(t, json.Unmarshal(resp.Data, &cards))
	assert.Equal(t, 1, cards.WIPStores)
}

func TestKPIsEndpointRejectsBadDate(t *testing.T) {
	env := newServerEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/analytics/kpis?from=not-a-date", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestRankingEndpoints(t *testing.T) {
	env := newServerEnv(t)
	seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, "/api/v1/analytics/ranking", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, _ = env.do(t, http.MethodGet, "/api/v1/analytics/ranking/ana", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/analytics/ranking/ninguem", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
}

func TestCapacityTrendsBottlenecksEndpoints(t *testing.T) {
	env := newServerEnv(t)
	seedBasicPortfolio(t, env)

	for _, path := range []string{
		"/api/v1/analytics/capacity",
		"/api/v1/analytics/trends",
		"/api/v1/analytics/bottlenecks",
	} {
		w, resp := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.True(t, resp.Success, path)
	}
}

func TestProjectListingAndDetail(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []analyticsapp.ProjectSummary
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 2)

	w, _ = env.do(t, http.MethodGet, "/api/v1/projects?status=DONE", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/projects?status=BOGUS", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)

	w, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%s", wip.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/projects/00000000-0000-0000-0000-000000000099", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
}

func TestProjectRiskEndpoint(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%s/risk", wip.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view analyticsapp.ProjectRiskView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, wip.ID.String(), view.ProjectID)
	assert.Equal(t, 75, view.ContractDays)
}

func TestPredictionEndpoint(t *testing.T) {
	env := newServerEnv(t)
	_, done := seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%s/prediction", done.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, true, data["concluded"])
}

func TestPauseLifecycleEndpoints(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)
	base := fmt.Sprintf("/api/v1/projects/%s/pauses", wip.ID)

	w, resp := env.do(t, http.MethodPost, base, map[string]any{"reason": "aguardando cliente"})
	require.Equal(t, http.StatusCreated, w.Code)
	var pause rollout.Pause
	require.NoError(t, json.Unmarshal(resp.Data, &pause))

	// A second open pause is rejected
	w, resp = env.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_CONFLICT", resp.Error.Code)

	w, _ = env.do(t, http.MethodPut, fmt.Sprintf("%s/%s/close", base, pause.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Closing it again is an invalid state transition
	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("%s/%s/close", base, pause.ID), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_INVALID_STATE", resp.Error.Code)

	w, resp = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pauses []rollout.Pause
	require.NoError(t, json.Unmarshal(resp.Data, &pauses))
	assert.Len(t, pauses, 1)
}

func TestOverridesEndpoint(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)

	finished := time.Now().UTC().AddDate(0, 0, -1)
	w, resp := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/projects/%s/overrides", wip.ID),
		map[string]any{"manual_finished_at": finished.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	updated, err := env.projects.FindByID(context.Background(), wip.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted())

	goLive := time.Now().UTC().AddDate(0, 0, 30).Truncate(time.Second)
	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/projects/%s/overrides", wip.ID),
		map[string]any{"manual_go_live_date": goLive.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	updated, err = env.projects.FindByID(context.Background(), wip.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ManualGoLiveDate)
	assert.True(t, updated.ManualGoLiveDate.Equal(goLive))

	w, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/projects/%s/overrides", wip.ID),
		map[string]any{"clear_manual_go_live": true})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err = env.projects.FindByID(context.Background(), wip.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.ManualGoLiveDate)
}

func TestForecastEndpoints(t *testing.T) {
	env := newServerEnv(t)
	seedBasicPortfolio(t, env)

	w, resp := env.do(t, http.MethodGet, "/api/v1/forecast/financial", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var points []forecastapp.FinancialPoint
	require.NoError(t, json.Unmarshal(resp.Data, &points))
	assert.NotEmpty(t, points)

	w, resp = env.do(t, http.MethodGet, "/api/v1/forecast/financial?lead_months=99", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/forecast/golive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []forecastapp.GoLiveEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	assert.Len(t, entries, 2)

	w, _ = env.do(t, http.MethodGet, "/api/v1/forecast/golive?status=GO_LIVE", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/v1/forecast/golive?status=WHENEVER", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/forecast/golive/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncEndpoints(t *testing.T) {
	env := newServerEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)

	w, resp = env.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status SyncStatusResponse
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Len(t, status.Runs, 1)

	w, resp = env.do(t, http.MethodGet, "/api/v1/sync/status?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)
}

func TestSnapshotEndpoints(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)

	w, _ := env.do(t, http.MethodPost, "/api/v1/snapshots", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, resp := env.do(t, http.MethodGet, "/api/v1/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snaps []rollout.DailySnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snaps))
	assert.Len(t, snaps, 1)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/snapshots/projects/%s", wip.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []rollout.ProjectSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, wip.ID, rows[0].ProjectID)

	w, resp = env.do(t, http.MethodGet, "/api/v1/snapshots/projects/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", resp.Error.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newServerEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = env.do(t, http.MethodPut, "/api/v1/settings",
		map[string]any{"values": map[string]string{"capacity_ceiling": "25"}})
	require.Equal(t, http.StatusOK, w.Code)
	var settings []rollout.Setting
	require.NoError(t, json.Unmarshal(resp.Data, &settings))
	assert.Len(t, settings, 1)

	w, resp = env.do(t, http.MethodPut, "/api/v1/settings",
		map[string]any{"values": map[string]string{"no_such_key": "1"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_INVALID_INPUT", resp.Error.Code)
}

func TestNarrativeEndpoints(t *testing.T) {
	env := newServerEnv(t)
	wip, _ := seedBasicPortfolio(t, env)
	path := fmt.Sprintf("/api/v1/projects/%s/narrative", wip.ID)

	w, resp := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)

	w, _ = env.do(t, http.MethodPut, path, map[string]any{"narrative": "Loja em implantação, sem riscos."})
	require.Equal(t, http.StatusNoContent, w.Code)

	w, resp = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var narrative NarrativeResponse
	require.NoError(t, json.Unmarshal(resp.Data, &narrative))
	assert.Equal(t, "Loja em implantação, sem riscos.", narrative.Narrative)

	w, _ = env.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemEndpoints(t *testing.T) {
	env := newServerEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/system/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = env.do(t, http.MethodGet, "/api/v1/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	assert.Equal(t, "Rollout Dashboard API", info.Name)
}
