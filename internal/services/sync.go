package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/loader"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// finalizeTimeout bounds the task bookkeeping done after the pass context ended.
const finalizeTimeout = 30 * time.Second

// SyncService runs sync passes from an ERP into a frePPLe database.
type SyncService struct {
	catalog     *entity.Catalog
	openTarget  TargetOpener
	openSource  SourceOpener
	housekeeper Housekeeper
	tasks       TaskStoreFactory
	logger      erpsync.Logger
	progress    erpsync.ProgressReporter
	now         func() time.Time
}

// NewSyncService creates a SyncService with all dependencies injected.
// Panics on nil dependencies; runtime failures are returned as errors by Run.
func NewSyncService(
	catalog *entity.Catalog,
	openTarget TargetOpener,
	openSource SourceOpener,
	housekeeper Housekeeper,
	tasks TaskStoreFactory,
	logger erpsync.Logger,
) *SyncService {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if openTarget == nil {
		panic("openTarget cannot be nil")
	}
	if openSource == nil {
		panic("openSource cannot be nil")
	}
	if housekeeper == nil {
		panic("housekeeper cannot be nil")
	}
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &SyncService{
		catalog:     catalog,
		openTarget:  openTarget,
		openSource:  openSource,
		housekeeper: housekeeper,
		tasks:       tasks,
		logger:      logger,
		progress:    noopProgress{},
		now:         time.Now,
	}
}

// WithProgress sets the reporter notified as entity types complete.
func (s *SyncService) WithProgress(p erpsync.ProgressReporter) *SyncService {
	if p == nil {
		p = noopProgress{}
	}
	s.progress = p
	return s
}

// Run executes one sync pass.
//
// Errors before a task is claimed (configuration, locking, connection) leave
// execute_log untouched. Once claimed, the task is always finalized: Done when
// every entity type ran, even if some were rolled back, and Failed when the
// pass was aborted. An aborted pass returns the report together with an
// error wrapping erpsync.ErrSyncFailed.
func (s *SyncService) Run(ctx context.Context, cfg erpsync.SyncConfig) (*erpsync.SyncReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	selected, err := s.catalog.Select(cfg.Entities, cfg.Disabled, cfg.Queries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no entity types selected: %w", erpsync.ErrInvalidConfig)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	release, err := activePasses.acquire(cfg.Target.String())
	if err != nil {
		return nil, err
	}
	defer release()

	s.logger.Verbose("Connecting to frePPLe database %s", cfg.Target.String())
	target, err := s.openTarget(ctx, &cfg.Target)
	if err != nil {
		return nil, err
	}
	defer target.Close()

	unlock, err := s.housekeeper.TryLock(ctx, target.Conn(), erpsync.TargetLockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("%v", err)
		}
	}()

	if err := s.preflight(ctx, target.Conn(), selected); err != nil {
		return nil, err
	}

	tasks := s.tasks(target.Conn())
	runID := uuid.New()
	task, err := s.claimTask(ctx, tasks, cfg, runID, selected)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sync %s started as task %d (%d entity types)", runID, task.ID, len(selected))

	report := &erpsync.SyncReport{
		RunID:   runID,
		TaskID:  task.ID,
		Status:  task.Status,
		Started: *task.Started,
	}

	fatal := s.pass(ctx, cfg, target, tasks, task, selected, report)
	return s.finish(ctx, tasks, task, report, fatal)
}

// preflight checks that the task table and every selected table exist.
func (s *SyncService) preflight(ctx context.Context, conn erpsync.DBConnection, selected []*entity.Descriptor) error {
	tables := []string{"execute_log"}
	for _, d := range selected {
		tables = append(tables, d.Table)
	}
	missing, err := s.housekeeper.MissingTables(ctx, conn, tables)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a frePPLe database, missing tables: %s: %w", strings.Join(missing, ", "), erpsync.ErrInvalidConfig)
	}
	return nil
}

// claimTask takes over the Waiting task given by cfg.TaskID or creates a new one,
// and marks it running under this process.
func (s *SyncService) claimTask(ctx context.Context, tasks erpsync.TaskStore, cfg erpsync.SyncConfig, runID uuid.UUID, selected []*entity.Descriptor) (*erpsync.Task, error) {
	name := cfg.EffectiveTaskName()
	now := s.now()
	pid := os.Getpid()

	names := make([]string, len(selected))
	for i, d := range selected {
		names[i] = d.Name
	}
	arguments := fmt.Sprintf("--run=%s --entity=%s", runID, strings.Join(names, ","))

	if cfg.TaskID != 0 {
		task, err := tasks.Get(ctx, cfg.TaskID)
		if err != nil {
			return nil, err
		}
		if !task.Claimable(name) {
			return nil, fmt.Errorf("task %d is %q with status %q, expected an unstarted %q task in status %q: %w",
				task.ID, task.Name, task.Status, name, erpsync.TaskWaiting, erpsync.ErrInvalidTask)
		}
		task.Started = &now
		task.Status = erpsync.TaskProgress(0)
		task.ProcessID = &pid
		task.Message = ""
		task.Arguments = strings.TrimSpace(task.Arguments + " " + arguments)
		if err := tasks.Save(ctx, task); err != nil {
			return nil, err
		}
		return task, nil
	}

	task := &erpsync.Task{
		Name:      name,
		Submitted: now,
		Started:   &now,
		Arguments: arguments,
		Status:    erpsync.TaskProgress(0),
		ProcessID: &pid,
	}
	if cfg.User != "" {
		id, err := tasks.ResolveUser(ctx, cfg.User)
		if err != nil {
			return nil, err
		}
		task.UserID = &id
	}
	if err := tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// pass opens the ERP and reconciles the selected entity types in order.
// The returned error is fatal for the whole pass.
func (s *SyncService) pass(
	ctx context.Context,
	cfg erpsync.SyncConfig,
	target Target,
	tasks erpsync.TaskStore,
	task *erpsync.Task,
	selected []*entity.Descriptor,
	report *erpsync.SyncReport,
) error {
	src, err := s.openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Verbose("Failed to close ERP connection: %v", err)
		}
	}()

	passStart := s.now()
	batchSize := cfg.EffectiveBatchSize()

	for i, d := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.progress.EntityStarted(d.Name, i, len(selected))
		s.logger.Verbose("[%s] Loading %s from %s", report.RunID, d.Name, src.Name())

		outcome := s.syncEntity(ctx, target, src, d, batchSize, passStart)
		report.Entities = append(report.Entities, outcome)
		s.logOutcome(outcome)

		percent := (i + 1) * 100 / len(selected)
		s.progress.EntityFinished(outcome, percent)

		if outcome.Err != nil {
			if err := s.checkAlive(ctx, target, src); err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
		}

		task.Status = erpsync.TaskProgress(percent)
		report.Status = task.Status
		if err := tasks.Save(ctx, task); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}
	return nil
}

// syncEntity reconciles one entity type in its own transaction.
// On any error the transaction is rolled back and the error is recorded in the outcome.
func (s *SyncService) syncEntity(
	ctx context.Context,
	target Target,
	src Source,
	d *entity.Descriptor,
	batchSize int,
	passStart time.Time,
) (out erpsync.EntityOutcome) {
	out.Result.Entity = d.Name
	started := s.now()
	defer func() {
		if out.Result.Duration == 0 {
			out.Result.Duration = s.now().Sub(started)
		}
	}()

	tx, err := target.Begin(ctx)
	if err != nil {
		out.Err = err
		return out
	}
	defer func() {
		if out.Err == nil {
			return
		}
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("Failed to roll back %s: %v", d.Name, err)
		}
	}()

	resolvers, err := loader.LoadResolvers(ctx, tx, s.catalog, d)
	if err != nil {
		out.Err = err
		return out
	}

	rows, err := src.Query(ctx, d.Query)
	if err != nil {
		out.Err = fmt.Errorf("%s query: %w", d.Name, err)
		return out
	}
	defer rows.Close()

	result, err := loader.New(s.logger, batchSize).Sync(ctx, tx, d, rows, resolvers, passStart)
	out.Result = result
	if err != nil {
		out.Err = err
		return out
	}

	if err := tx.Commit(ctx); err != nil {
		out.Err = fmt.Errorf("failed to commit %s: %w", d.Name, err)
	}
	return out
}

// checkAlive decides whether an entity-type failure ends the pass.
func (s *SyncService) checkAlive(ctx context.Context, target Target, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := src.Ping(ctx); err != nil {
		return err
	}
	return target.Ping(ctx)
}

func (s *SyncService) logOutcome(out erpsync.EntityOutcome) {
	if out.Err != nil {
		s.logger.Error("%s rolled back: %v", out.Result.Entity, out.Err)
		return
	}
	s.logger.Verbose("%s", out.Result.String())
	for _, re := range out.Result.RowErrors {
		s.logger.Verbose("  %s", re.Error())
	}
	if hidden := out.Result.Errors - len(out.Result.RowErrors); hidden > 0 {
		s.logger.Verbose("  ... and %d more row errors", hidden)
	}
}

// finish writes the final task state. It runs on a context detached from
// cancellation so an interrupted pass still leaves a finished task behind.
func (s *SyncService) finish(
	ctx context.Context,
	tasks erpsync.TaskStore,
	task *erpsync.Task,
	report *erpsync.SyncReport,
	fatal error,
) (*erpsync.SyncReport, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	now := s.now()
	switch {
	case fatal != nil:
		task.Status = erpsync.TaskFailed
		task.Message = fmt.Sprintf("Failed: %v", fatal)
	case len(report.Failed()) > 0:
		// Committed entity types stay, but the task shows the pass as failed.
		task.Status = erpsync.TaskFailed
		task.Message = "Failed: " + summary(report)
	default:
		task.Status = erpsync.TaskDone
		task.Message = summary(report)
	}
	task.Finished = &now
	task.ProcessID = nil

	report.Status = task.Status
	report.Message = task.Message
	report.Finished = now

	saveErr := tasks.Save(ctx, task)
	if saveErr != nil {
		s.logger.Error("Failed to finalize task %d: %v", task.ID, saveErr)
	}
	s.progress.Finished(report)

	if fatal != nil {
		s.logger.Error("Sync %s failed: %v", report.RunID, fatal)
		return report, fmt.Errorf("%w: %w", erpsync.ErrSyncFailed, fatal)
	}
	if saveErr != nil {
		return report, saveErr
	}
	if task.Status == erpsync.TaskFailed {
		s.logger.Error("Sync %s finished: %s", report.RunID, task.Message)
	} else {
		s.logger.Info("Sync %s finished: %s", report.RunID, task.Message)
	}
	return report, nil
}

func summary(report *erpsync.SyncReport) string {
	totals := report.Totals()
	msg := fmt.Sprintf("%d rows read, %d inserted, %d updated, %d errors",
		totals.Read, totals.Inserted, totals.Updated, totals.Errors)
	if failed := report.Failed(); len(failed) > 0 {
		msg += "; rolled back: " + strings.Join(failed, ", ")
	}
	return msg
}

type noopProgress struct{}

func (noopProgress) EntityStarted(string, int, int)            {}
func (noopProgress) EntityFinished(erpsync.EntityOutcome, int) {}
func (noopProgress) Finished(*erpsync.SyncReport)              {}
