package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/logging"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

type harness struct {
	svc          *SyncService
	catalog      *entity.Catalog
	target       *memTarget
	source       *mockSource
	housekeeper  *mockHousekeeper
	tasks        *mockTaskStore
	progress     *recordingProgress
	targetOpened bool
	sourceOpened bool
	sourceErr    error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		catalog:     entity.FrePPLe(),
		target:      newMemTarget(),
		source:      newMockSource(),
		housekeeper: &mockHousekeeper{},
		tasks:       newMockTaskStore(),
		progress:    &recordingProgress{},
	}
	openTarget := func(ctx context.Context, cfg *erpsync.ConnectionConfig) (Target, error) {
		h.targetOpened = true
		return h.target, nil
	}
	openSource := func(ctx context.Context, cfg erpsync.SourceConfig) (Source, error) {
		h.sourceOpened = true
		if h.sourceErr != nil {
			return nil, h.sourceErr
		}
		return h.source, nil
	}
	tasks := func(erpsync.DBConnection) erpsync.TaskStore { return h.tasks }

	h.svc = NewSyncService(h.catalog, openTarget, openSource, h.housekeeper, tasks, logging.NewNullLogger()).
		WithProgress(h.progress)
	return h
}

func (h *harness) view(t *testing.T, entityName string, rows ...[]any) {
	t.Helper()
	d, ok := h.catalog.Lookup(entityName)
	require.True(t, ok, entityName)
	h.source.views[d.Query] = append(h.source.views[d.Query], rows...)
}

func (h *harness) query(t *testing.T, entityName string) string {
	t.Helper()
	d, ok := h.catalog.Lookup(entityName)
	require.True(t, ok, entityName)
	return d.Query
}

func testConfig(t *testing.T, entities ...string) erpsync.SyncConfig {
	return erpsync.SyncConfig{
		Source:   erpsync.SourceConfig{Driver: "sqlite", Database: "erp.db"},
		Target:   erpsync.ConnectionConfig{Host: "localhost", Port: 5432, Database: t.Name()},
		Entities: entities,
	}
}

func TestNewSyncService_PanicsOnNilDependencies(t *testing.T) {
	catalog := entity.FrePPLe()
	openTarget := func(context.Context, *erpsync.ConnectionConfig) (Target, error) { return nil, nil }
	openSource := func(context.Context, erpsync.SourceConfig) (Source, error) { return nil, nil }
	tasks := func(erpsync.DBConnection) erpsync.TaskStore { return nil }
	hk := &mockHousekeeper{}
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewSyncService(nil, openTarget, openSource, hk, tasks, logger) })
	assert.Panics(t, func() { NewSyncService(catalog, nil, openSource, hk, tasks, logger) })
	assert.Panics(t, func() { NewSyncService(catalog, openTarget, nil, hk, tasks, logger) })
	assert.Panics(t, func() { NewSyncService(catalog, openTarget, openSource, nil, tasks, logger) })
	assert.Panics(t, func() { NewSyncService(catalog, openTarget, openSource, hk, nil, logger) })
	assert.Panics(t, func() { NewSyncService(catalog, openTarget, openSource, hk, tasks, nil) })
}

func TestRun_LoadsEntitiesInCatalogOrder(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", "Main plant"})
	h.view(t, "resource", []any{"R1", nil, nil, nil, "Plant", nil})

	report, err := h.svc.Run(context.Background(), testConfig(t, "resource", "location"))
	require.NoError(t, err)

	assert.Equal(t, []string{h.query(t, "location"), h.query(t, "resource")}, h.source.queries)
	assert.Equal(t, []string{"location", "resource"}, h.progress.started)
	assert.Equal(t, []int{50, 100}, h.progress.percents)
	assert.Equal(t, []string{"Plant"}, h.target.keys("location"))
	assert.Equal(t, []string{"R1"}, h.target.keys("resource"))
	assert.Equal(t, 2, h.target.commits)
	assert.Equal(t, 0, h.target.rollbacks)

	require.Len(t, report.Entities, 2)
	assert.Equal(t, 1, report.Entities[0].Result.Inserted)
	assert.Equal(t, 1, report.Entities[1].Result.Inserted)
	assert.Equal(t, erpsync.TaskDone, report.Status)
	assert.Same(t, report, h.progress.report)
	assert.NotEqual(t, [16]byte{}, [16]byte(report.RunID))

	assert.Equal(t, erpsync.TargetLockKey, h.housekeeper.lockKey)
	assert.True(t, h.housekeeper.unlocked)
	assert.Equal(t, []string{"execute_log", "location", "resource"}, h.housekeeper.checked)
	assert.True(t, h.target.closed)
	assert.True(t, h.source.closed)
}

func TestRun_TaskLifecycle(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.view(t, "item", []any{"A", nil, "first", nil})

	report, err := h.svc.Run(context.Background(), testConfig(t, "location", "item"))
	require.NoError(t, err)

	require.Len(t, h.tasks.saved, 3)
	assert.Equal(t, erpsync.TaskStatus("50%"), h.tasks.saved[0].Status)
	assert.Equal(t, erpsync.TaskStatus("100%"), h.tasks.saved[1].Status)
	require.NotNil(t, h.tasks.saved[0].ProcessID)

	final := h.tasks.last()
	assert.Equal(t, report.TaskID, final.ID)
	assert.Equal(t, "erp2frepple", final.Name)
	assert.Equal(t, erpsync.TaskDone, final.Status)
	assert.NotNil(t, final.Started)
	assert.NotNil(t, final.Finished)
	assert.Nil(t, final.ProcessID)
	assert.Contains(t, final.Arguments, report.RunID.String())
	assert.Contains(t, final.Arguments, "--entity=location,item")
	assert.Equal(t, "2 rows read, 2 inserted, 0 updated, 0 errors", final.Message)
}

func TestRun_UnresolvableReferenceIsCountedNotFatal(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.view(t, "resource", []any{"R1", nil, nil, nil, "Nowhere", nil})

	report, err := h.svc.Run(context.Background(), testConfig(t, "location", "resource"))
	require.NoError(t, err)

	res := report.Entities[1].Result
	assert.NoError(t, report.Entities[1].Err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.RowErrors, 1)
	assert.ErrorIs(t, res.RowErrors[0], erpsync.ErrReferenceNotFound)
	assert.Empty(t, h.target.keys("resource"))
	assert.Equal(t, erpsync.TaskDone, h.tasks.last().Status)
}

func TestRun_EntityFailureRollsBackAndContinues(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.view(t, "item", []any{"A", nil, nil, nil})
	h.target.failInsert["location"] = errors.New("unexpected server response")

	report, err := h.svc.Run(context.Background(), testConfig(t, "location", "item"))
	require.NoError(t, err)

	assert.Equal(t, []string{"location"}, report.Failed())
	assert.Equal(t, 1, h.target.rollbacks)
	assert.Empty(t, h.target.keys("location"))
	assert.Equal(t, []string{"A"}, h.target.keys("item"))

	final := h.tasks.last()
	assert.Equal(t, erpsync.TaskFailed, final.Status)
	assert.Regexp(t, "^Failed: ", final.Message)
	assert.Contains(t, final.Message, "rolled back: location")
	assert.Equal(t, erpsync.TaskFailed, report.Status)
	assert.NotNil(t, final.Finished)
	assert.Nil(t, final.ProcessID)
}

func TestRun_QueryFailureRollsBackEntity(t *testing.T) {
	h := newHarness(t)
	h.source.queryErr[h.query(t, "location")] = errors.New("invalid object name")
	h.view(t, "item", []any{"A", nil, nil, nil})

	report, err := h.svc.Run(context.Background(), testConfig(t, "location", "item"))
	require.NoError(t, err)

	require.Len(t, report.Entities, 2)
	assert.ErrorContains(t, report.Entities[0].Err, "invalid object name")
	assert.NoError(t, report.Entities[1].Err)
	assert.Equal(t, 1, h.target.rollbacks)
}

func TestRun_SourceLostIsFatal(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.view(t, "item", []any{"A", nil, nil, nil})
	h.target.failInsert["location"] = errors.New("read: connection reset")
	h.source.pingErr = erpsync.ErrSourceUnavailable

	report, err := h.svc.Run(context.Background(), testConfig(t, "location", "item"))
	require.Error(t, err)
	assert.ErrorIs(t, err, erpsync.ErrSyncFailed)
	assert.ErrorIs(t, err, erpsync.ErrSourceUnavailable)

	require.NotNil(t, report)
	assert.Len(t, report.Entities, 1)
	assert.Equal(t, erpsync.TaskFailed, report.Status)
	assert.NotContains(t, h.source.queries, h.query(t, "item"))

	final := h.tasks.last()
	assert.Equal(t, erpsync.TaskFailed, final.Status)
	assert.Contains(t, final.Message, "Failed: ")
	assert.Nil(t, final.ProcessID)
	assert.NotNil(t, final.Finished)
}

func TestRun_TargetLostIsFatal(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.target.beginErr = errors.New("conn closed")
	h.target.pingErr = erpsync.ErrConnectionFailed

	_, err := h.svc.Run(context.Background(), testConfig(t, "location", "item"))
	assert.ErrorIs(t, err, erpsync.ErrSyncFailed)
	assert.ErrorIs(t, err, erpsync.ErrConnectionFailed)
}

func TestRun_CancelledContextFailsTask(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Run(ctx, testConfig(t, "location"))
	assert.ErrorIs(t, err, erpsync.ErrSyncFailed)
	assert.ErrorIs(t, err, context.Canceled)

	final := h.tasks.last()
	assert.Equal(t, erpsync.TaskFailed, final.Status)
	assert.Equal(t, 0, h.target.began)
}

func TestRun_SourceOpenFailureFailsTask(t *testing.T) {
	h := newHarness(t)
	h.sourceErr = erpsync.ErrSourceUnavailable

	_, err := h.svc.Run(context.Background(), testConfig(t, "location"))
	assert.ErrorIs(t, err, erpsync.ErrSourceUnavailable)
	assert.ErrorIs(t, err, erpsync.ErrSyncFailed)
	assert.Equal(t, erpsync.TaskFailed, h.tasks.last().Status)
}

func TestRun_ClaimsWaitingTask(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.tasks.tasks[7] = &erpsync.Task{ID: 7, Name: "erp2frepple", Status: erpsync.TaskWaiting, Submitted: time.Now()}

	cfg := testConfig(t, "location")
	cfg.TaskID = 7
	report, err := h.svc.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, int64(7), report.TaskID)
	assert.Equal(t, erpsync.TaskStatus("0%"), h.tasks.saved[0].Status)
	assert.NotNil(t, h.tasks.saved[0].Started)
	assert.Equal(t, erpsync.TaskDone, h.tasks.tasks[7].Status)
	assert.Equal(t, int64(100), h.tasks.nextID, "no new task created")
}

func TestRun_RejectsUnclaimableTask(t *testing.T) {
	started := time.Now()
	tests := []struct {
		name string
		task erpsync.Task
	}{
		{"already finished", erpsync.Task{ID: 7, Name: "erp2frepple", Status: erpsync.TaskDone}},
		{"already started", erpsync.Task{ID: 7, Name: "erp2frepple", Status: erpsync.TaskWaiting, Started: &started}},
		{"other job", erpsync.Task{ID: 7, Name: "runplan", Status: erpsync.TaskWaiting}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			task := tt.task
			h.tasks.tasks[7] = &task

			cfg := testConfig(t, "location")
			cfg.TaskID = 7
			_, err := h.svc.Run(context.Background(), cfg)
			assert.ErrorIs(t, err, erpsync.ErrInvalidTask)
			assert.False(t, h.sourceOpened)
			assert.Empty(t, h.tasks.saved)
			assert.True(t, h.housekeeper.unlocked)
		})
	}
}

func TestRun_UnknownTask(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t, "location")
	cfg.TaskID = 42

	_, err := h.svc.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, erpsync.ErrTaskNotFound)
	assert.Equal(t, erpsync.ExitConfigError, erpsync.ExitCodeForError(err))
}

func TestRun_RecordsUser(t *testing.T) {
	h := newHarness(t)
	h.tasks.users["admin"] = 3
	h.view(t, "location", []any{"Plant", nil})

	cfg := testConfig(t, "location")
	cfg.User = "admin"
	_, err := h.svc.Run(context.Background(), cfg)
	require.NoError(t, err)

	final := h.tasks.last()
	require.NotNil(t, final.UserID)
	assert.Equal(t, int64(3), *final.UserID)
}

func TestRun_UnknownUser(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t, "location")
	cfg.User = "ghost"

	_, err := h.svc.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, erpsync.ErrInvalidConfig)
	assert.False(t, h.sourceOpened)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*erpsync.SyncConfig)
		want   error
	}{
		{"missing driver", func(c *erpsync.SyncConfig) { c.Source.Driver = "" }, erpsync.ErrInvalidConfig},
		{"missing target database", func(c *erpsync.SyncConfig) { c.Target.Database = "" }, erpsync.ErrInvalidConfig},
		{"unknown entity", func(c *erpsync.SyncConfig) { c.Entities = []string{"widget"} }, erpsync.ErrUnknownEntity},
		{"everything disabled", func(c *erpsync.SyncConfig) {
			c.Entities = []string{"location"}
			c.Disabled = []string{"location"}
		}, erpsync.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := h.svc.Run(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, h.targetOpened)
		})
	}
}

func TestRun_QueryOverride(t *testing.T) {
	h := newHarness(t)
	h.source.views["select name, descr from locations"] = [][]any{{"Plant", nil}}

	cfg := testConfig(t, "location")
	cfg.Queries = map[string]string{"Location": "select name, descr from locations"}
	_, err := h.svc.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"select name, descr from locations"}, h.source.queries)
	assert.Equal(t, []string{"Plant"}, h.target.keys("location"))
}

func TestRun_LockHeld(t *testing.T) {
	h := newHarness(t)
	h.housekeeper.lockErr = erpsync.ErrSyncInProgress

	_, err := h.svc.Run(context.Background(), testConfig(t, "location"))
	assert.ErrorIs(t, err, erpsync.ErrSyncInProgress)
	assert.Empty(t, h.tasks.tasks)
	assert.True(t, h.target.closed)
}

func TestRun_LockIgnoresTaskName(t *testing.T) {
	h := newHarness(t)
	h.housekeeper.held = map[string]bool{erpsync.TargetLockKey: true}

	cfg := testConfig(t, "location")
	cfg.TaskName = "nightly-items"
	_, err := h.svc.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, erpsync.ErrSyncInProgress)
	assert.Empty(t, h.tasks.tasks)
}

func TestRun_InProcessGuard(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t, "location")

	release, err := activePasses.acquire(cfg.Target.String())
	require.NoError(t, err)
	defer release()

	_, err = h.svc.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, erpsync.ErrSyncInProgress)
	assert.False(t, h.targetOpened)
}

func TestRun_MissingTables(t *testing.T) {
	h := newHarness(t)
	h.housekeeper.missing = []string{"execute_log"}

	_, err := h.svc.Run(context.Background(), testConfig(t, "location"))
	assert.ErrorIs(t, err, erpsync.ErrInvalidConfig)
	assert.ErrorContains(t, err, "execute_log")
	assert.Empty(t, h.tasks.tasks)
}

func TestRun_ProgressSaveFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.view(t, "location", []any{"Plant", nil})
	h.tasks.saveErr = errors.New("execute_log is locked")

	_, err := h.svc.Run(context.Background(), testConfig(t, "location"))
	assert.ErrorIs(t, err, erpsync.ErrSyncFailed)
	assert.ErrorContains(t, err, "failed to record progress")
}

func TestSummary(t *testing.T) {
	report := &erpsync.SyncReport{Entities: []erpsync.EntityOutcome{
		{Result: erpsync.SyncResult{Entity: "item", Read: 3, Inserted: 1, Updated: 1, Errors: 1}},
		{Result: erpsync.SyncResult{Entity: "demand"}, Err: errors.New("boom")},
	}}
	assert.Equal(t, "3 rows read, 1 inserted, 1 updated, 1 errors; rolled back: demand", summary(report))
}
