package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
	"github.com/rollout/backend/internal/infrastructure/config"
	"github.com/rollout/backend/internal/infrastructure/logger"
	"github.com/rollout/backend/internal/infrastructure/tracker"
)

// fatherFieldName is the tracker custom field on step tasks holding the
// parent store code.
const fatherFieldName = "_father_task_id"

// TrackerClient is the slice of the tracker API the sync needs.
type TrackerClient interface {
	ListTasks(ctx context.Context, listID string, opts tracker.ListTasksOptions) ([]tracker.Task, error)
	FindFieldID(ctx context.Context, listID, fieldName string) (string, error)
}

// SyncService ingests the tracker into the local portfolio. Runs are
// serialized through the database gate, fetch incrementally from the last
// sync instant, and isolate item failures so one bad task never aborts a
// pass.
type SyncService struct {
	projects rollout.ProjectRepository
	steps    rollout.StepRepository
	syncRepo rollout.SyncRepository
	client   TrackerClient
	mapper   *TaskMapper
	logger   *zap.Logger

	projectListIDs []string
	stepLists      map[string]string
	workers        int
	staleAfter     time.Duration
	keepRuns       int

	now func() time.Time
}

// NewSyncService creates the sync service.
func NewSyncService(
	projects rollout.ProjectRepository,
	steps rollout.StepRepository,
	syncRepo rollout.SyncRepository,
	client TrackerClient,
	trackerCfg config.TrackerConfig,
	syncCfg config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := syncCfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &SyncService{
		projects:       projects,
		steps:          steps,
		syncRepo:       syncRepo,
		client:         client,
		mapper:         NewTaskMapper(nil),
		logger:         logger,
		projectListIDs: trackerCfg.ProjectListIDs,
		stepLists:      trackerCfg.StepLists,
		workers:        workers,
		staleAfter:     syncCfg.StaleAfter,
		keepRuns:       syncCfg.KeepRuns,
		now:            time.Now,
	}
}

// Run performs an incremental sync. It acquires the gate, fetches store and
// step tasks modified since the last pass, and persists them. Returns
// rollout.ErrSyncAlreadyRunning when another run holds the gate.
func (s *SyncService) Run(ctx context.Context, trigger rollout.SyncTrigger) (*rollout.SyncRun, error) {
	return s.run(ctx, trigger, false)
}

// RunFull performs a full sync, ignoring the incremental cursor.
func (s *SyncService) RunFull(ctx context.Context, trigger rollout.SyncTrigger) (*rollout.SyncRun, error) {
	return s.run(ctx, trigger, true)
}

// Status returns the gate state and the most recent runs.
func (s *SyncService) Status(ctx context.Context, limit int) (*rollout.SyncState, []rollout.SyncRun, error) {
	state, err := s.syncRepo.GetState(ctx)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	runs, err := s.syncRepo.ListRuns(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	return state, runs, nil
}

func (s *SyncService) run(ctx context.Context, trigger rollout.SyncTrigger, forceFull bool) (*rollout.SyncRun, error) {
	startedAt := s.now()

	acquired, err := s.syncRepo.TryStart(ctx, startedAt, s.staleAfter)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, rollout.ErrSyncAlreadyRunning
	}

	run := rollout.NewSyncRun(trigger, startedAt)
	if err := s.syncRepo.CreateRun(ctx, run); err != nil {
		// Release the gate, nothing ran.
		_ = s.syncRepo.FinishSync(ctx, s.now(), err.Error())
		return nil, err
	}

	var since time.Time
	if !forceFull {
		if state, err := s.syncRepo.GetState(ctx); err == nil && state.LastSyncAt != nil {
			since = *state.LastSyncAt
		}
	}

	// Every log line below this point carries the run id through the context.
	ctx, runLog := logger.WithSyncRunID(ctx, s.logger, run.ID.String())

	runLog.Info("sync started",
		zap.String("trigger", string(trigger)),
		zap.Bool("full", since.IsZero()),
	)

	fatal := s.execute(ctx, run, since)

	run.Finish(s.now(), fatal)
	if err := s.syncRepo.UpdateRun(ctx, run); err != nil {
		runLog.Error("failed to persist sync run", zap.Error(err))
	}

	lastError := ""
	if fatal != nil {
		lastError = fatal.Error()
	}
	if err := s.syncRepo.FinishSync(ctx, s.now(), lastError); err != nil {
		runLog.Error("failed to release sync gate", zap.Error(err))
	}

	if s.keepRuns > 0 {
		if _, err := s.syncRepo.PruneRuns(ctx, s.keepRuns); err != nil {
			runLog.Warn("failed to prune sync runs", zap.Error(err))
		}
	}

	runLog.Info("sync finished",
		zap.String("status", string(run.Status)),
		zap.Int("projects_seen", run.ProjectsSeen),
		zap.Int("steps_seen", run.StepsSeen),
		zap.Int("errors", run.ErrorCount),
		zap.Duration("took", run.Duration()),
	)

	if fatal != nil {
		return run, fatal
	}
	return run, nil
}

// execute does the actual fetch-and-persist work. Item-level failures are
// recorded on the run; only errors that prevent any progress are returned.
func (s *SyncService) execute(ctx context.Context, run *rollout.SyncRun, since time.Time) error {
	now := s.now()

	// 1. Parent store tasks.
	storeTasks, err := s.fetchStoreTasks(ctx, since)
	if err != nil {
		return fmt.Errorf("fetching store tasks: %w", err)
	}
	run.ProjectsSeen = len(storeTasks)

	for i := range storeTasks {
		if err := s.upsertProject(ctx, run, &storeTasks[i], now); err != nil {
			s.recordError(ctx, run, storeTasks[i].ID, "", err)
		}
	}

	// 2. Step tasks, one worker per stage list.
	stageTasks, err := s.fetchStepTasks(ctx, run, since)
	if err != nil {
		return fmt.Errorf("fetching step tasks: %w", err)
	}

	// 3. Resolve the parent reference field and group steps per store code.
	if len(stageTasks) > 0 {
		fieldID, err := s.fatherFieldID(ctx)
		if err != nil {
			return fmt.Errorf("resolving parent field: %w", err)
		}

		byStore := make(map[string][]stagedTask)
		for _, st := range stageTasks {
			run.StepsSeen++
			code := FatherRef(&st.task, fieldID)
			if code == "" {
				continue
			}
			byStore[code] = append(byStore[code], st)
		}

		for code, tasks := range byStore {
			if err := s.upsertSteps(ctx, code, tasks, now); err != nil {
				s.recordError(ctx, run, "", code, err)
			}
		}
	}

	return nil
}

// fetchStoreTasks lists parent tasks from every configured project list.
// Closed tasks are excluded; a completed store leaves the board through its
// closure date already captured while it was open, or a manual finish.
func (s *SyncService) fetchStoreTasks(ctx context.Context, since time.Time) ([]tracker.Task, error) {
	var all []tracker.Task
	for _, listID := range s.projectListIDs {
		tasks, err := s.client.ListTasks(ctx, listID, tracker.ListTasksOptions{
			IncludeClosed: false,
			UpdatedSince:  since,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}

// stagedTask is a step task annotated with the stage list it came from.
type stagedTask struct {
	stage string
	task  tracker.Task
}

// fetchStepTasks fans one worker out per stage list and fans results back
// in. A list that fails is recorded on the run without aborting the others.
func (s *SyncService) fetchStepTasks(ctx context.Context, run *rollout.SyncRun, since time.Time) ([]stagedTask, error) {
	type listResult struct {
		stage  string
		listID string
		tasks  []tracker.Task
		err    error
	}

	jobs := make(chan [2]string)
	results := make(chan listResult)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				stage, listID := job[0], job[1]
				tasks, err := s.client.ListTasks(ctx, listID, tracker.ListTasksOptions{
					IncludeClosed: true,
					UpdatedSince:  since,
				})
				results <- listResult{stage: stage, listID: listID, tasks: tasks, err: err}
			}
		}()
	}

	go func() {
		for stage, listID := range s.stepLists {
			jobs <- [2]string{stage, listID}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var all []stagedTask
	for res := range results {
		if res.err != nil {
			s.recordError(ctx, run, "", res.listID, res.err)
			continue
		}
		for _, task := range res.tasks {
			all = append(all, stagedTask{stage: res.stage, task: task})
		}
	}
	return all, nil
}

// fatherFieldID resolves the parent-reference custom field using the first
// stage list that declares it.
func (s *SyncService) fatherFieldID(ctx context.Context) (string, error) {
	var lastErr error
	for _, listID := range s.stepLists {
		id, err := s.client.FindFieldID(ctx, listID, fatherFieldName)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = tracker.ErrFieldNotFound
	}
	return "", lastErr
}

// upsertProject creates or updates the project behind a store task and
// records the audited field changes.
func (s *SyncService) upsertProject(ctx context.Context, run *rollout.SyncRun, task *tracker.Task, now time.Time) error {
	existing, err := s.projects.FindByTaskRef(ctx, task.ID)
	switch {
	case err == nil:
		changes := s.mapper.ApplyProjectTask(existing, task, now)
		if err := existing.Validate(); err != nil {
			return err
		}
		if err := s.projects.Update(ctx, existing); err != nil {
			return err
		}
		run.Updated++
		s.auditChanges(ctx, run, existing, changes)
		return nil

	case errors.Is(err, shared.ErrNotFound):
		project, err := rollout.NewProject(task.ID, task.Name)
		if err != nil {
			return err
		}
		s.mapper.ApplyProjectTask(project, task, now)
		if err := project.Validate(); err != nil {
			return err
		}
		if err := s.projects.Create(ctx, project); err != nil {
			return err
		}
		run.Created++
		return nil

	default:
		return err
	}
}

// upsertSteps persists the step tasks of one store and re-applies the
// training completion rule.
func (s *SyncService) upsertSteps(ctx context.Context, storeCode string, tasks []stagedTask, now time.Time) error {
	project, err := s.projects.FindByStoreCode(ctx, storeCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Step arrived before its store; the next pass picks it up.
			logger.L(ctx).Debug("step references unknown store", zap.String("store_code", storeCode))
			return nil
		}
		return err
	}

	for _, st := range tasks {
		step, err := s.steps.FindByTaskRef(ctx, st.task.ID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			step = &rollout.TaskStep{BaseEntity: shared.NewBaseEntity()}
		}
		s.mapper.ApplyStepTask(step, &st.task, st.stage, project.ID, now)
		if err := s.steps.Upsert(ctx, step); err != nil {
			return err
		}
	}

	return s.applyTrainingCompletion(ctx, project)
}

// applyTrainingCompletion marks the project delivered when its training
// stage closed, using the training end as the completion instant. The
// tracker's own closure, when present, already settled the matter.
func (s *SyncService) applyTrainingCompletion(ctx context.Context, project *rollout.Project) error {
	if project.EffectiveFinishedAt() != nil {
		return nil
	}

	steps, err := s.steps.FindByProject(ctx, project.ID)
	if err != nil {
		return err
	}

	for _, step := range steps {
		if step.Stage == rollout.StageTraining && step.EndAt != nil {
			project.Status = rollout.StatusDone
			project.RawStatus = "Concluído (Treinamento)"
			project.ReportedClosedAt = step.EndAt
			return s.projects.Update(ctx, project)
		}
	}
	return nil
}

// auditChanges stores the change log rows for an updated project.
func (s *SyncService) auditChanges(ctx context.Context, run *rollout.SyncRun, project *rollout.Project, changes []FieldChange) {
	if len(changes) == 0 {
		return
	}
	rows := make([]rollout.ChangeLog, 0, len(changes))
	for _, ch := range changes {
		rows = append(rows, rollout.ChangeLog{
			BaseEntity: shared.NewBaseEntity(),
			ProjectID:  project.ID,
			RunID:      run.ID,
			Field:      ch.Field,
			OldValue:   ch.Old,
			NewValue:   ch.New,
		})
	}
	if err := s.syncRepo.AddChanges(ctx, rows); err != nil {
		logger.L(ctx).Warn("failed to record change audit", zap.Error(err))
	}
}

// recordError captures an item failure on the run.
func (s *SyncService) recordError(ctx context.Context, run *rollout.SyncRun, taskRef, listID string, cause error) {
	run.ErrorCount++
	logger.L(ctx).Warn("sync item failed",
		zap.String("task_ref", taskRef),
		zap.String("list_id", listID),
		zap.Error(cause),
	)
	syncErr := &rollout.SyncError{
		BaseEntity: shared.NewBaseEntity(),
		RunID:      run.ID,
		TaskRef:    taskRef,
		ListID:     listID,
		Message:    cause.Error(),
	}
	if err := s.syncRepo.AddError(ctx, syncErr); err != nil {
		logger.L(ctx).Error("failed to record sync error", zap.Error(err))
	}
}
