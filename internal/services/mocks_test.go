package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vvka-141/erpsync/internal/db/manager"
	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// memTarget is an in-memory frePPLe database for name-identified tables.
type memTarget struct {
	mu        sync.Mutex
	committed map[string]map[string]any // table -> key -> identity

	pingErr  error
	beginErr error
	// failInsert makes InsertBatch on these tables fail with a fatal error.
	failInsert map[string]error

	began     int
	commits   int
	rollbacks int
	closed    bool
}

func newMemTarget() *memTarget {
	return &memTarget{
		committed:  map[string]map[string]any{},
		failInsert: map[string]error{},
	}
}

func (t *memTarget) Ping(ctx context.Context) error { return t.pingErr }

func (t *memTarget) Begin(ctx context.Context) (EntityTx, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.beginErr != nil {
		return nil, t.beginErr
	}
	t.began++
	return &memTx{target: t, pending: map[string]map[string]any{}}, nil
}

func (t *memTarget) Conn() erpsync.DBConnection { return nil }

func (t *memTarget) Close() { t.closed = true }

func (t *memTarget) keys(table string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var keys []string
	for k := range t.committed[table] {
		keys = append(keys, entity.DisplayKey(k))
	}
	return keys
}

type memTx struct {
	target  *memTarget
	pending map[string]map[string]any
	done    bool
}

func (tx *memTx) LoadKeys(ctx context.Context, d *entity.Descriptor) (map[string]any, error) {
	tx.target.mu.Lock()
	defer tx.target.mu.Unlock()
	keys := map[string]any{}
	for k, v := range tx.target.committed[d.Table] {
		keys[k] = v
	}
	for k, v := range tx.pending[d.Table] {
		keys[k] = v
	}
	return keys, nil
}

func (tx *memTx) InsertBatch(ctx context.Context, d *entity.Descriptor, recs []entity.Record) (int, error) {
	if err := tx.target.failInsert[d.Table]; err != nil {
		return 0, err
	}
	if tx.pending[d.Table] == nil {
		tx.pending[d.Table] = map[string]any{}
	}
	for _, r := range recs {
		tx.pending[d.Table][r.Key] = r.Values[d.KeyIndexes()[0]]
	}
	return len(recs), nil
}

func (tx *memTx) Update(ctx context.Context, d *entity.Descriptor, identity any, rec entity.Record) (bool, error) {
	return true, nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	tx.target.mu.Lock()
	defer tx.target.mu.Unlock()
	for table, rows := range tx.pending {
		if tx.target.committed[table] == nil {
			tx.target.committed[table] = map[string]any{}
		}
		for k, v := range rows {
			tx.target.committed[table][k] = v
		}
	}
	tx.target.commits++
	tx.done = true
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.target.mu.Lock()
	tx.target.rollbacks++
	tx.target.mu.Unlock()
	tx.done = true
	return nil
}

// sliceRows serves in-memory ERP rows.
type sliceRows struct {
	rows   [][]any
	pos    int
	closed bool
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }
func (r *sliceRows) Err() error             { return nil }
func (r *sliceRows) Close() error           { r.closed = true; return nil }

// mockSource answers queries from a map of query text to rows.
type mockSource struct {
	views    map[string][][]any
	queryErr map[string]error
	pingErr  error
	closed   bool
	queries  []string
}

func newMockSource() *mockSource {
	return &mockSource{views: map[string][][]any{}, queryErr: map[string]error{}}
}

func (s *mockSource) Name() string                   { return "mock" }
func (s *mockSource) Ping(ctx context.Context) error { return s.pingErr }
func (s *mockSource) Close() error                   { s.closed = true; return nil }

func (s *mockSource) Query(ctx context.Context, query string) (SourceRows, error) {
	s.queries = append(s.queries, query)
	if err := s.queryErr[query]; err != nil {
		return nil, err
	}
	return &sliceRows{rows: s.views[query]}, nil
}

type mockHousekeeper struct {
	// held keys behave as locks taken by another process.
	held       map[string]bool
	lockErr    error
	lockKey    string
	unlocked   bool
	missing    []string
	missingErr error
	checked    []string
}

func (h *mockHousekeeper) TryLock(ctx context.Context, conn erpsync.DBConnection, key string) (manager.UnlockFunc, error) {
	if h.lockErr != nil {
		return nil, h.lockErr
	}
	if h.held[key] {
		return nil, fmt.Errorf("lock %q is held by another session: %w", key, erpsync.ErrSyncInProgress)
	}
	h.lockKey = key
	return func(context.Context) error {
		h.unlocked = true
		return nil
	}, nil
}

func (h *mockHousekeeper) MissingTables(ctx context.Context, conn erpsync.DBConnection, names []string) ([]string, error) {
	h.checked = names
	return h.missing, h.missingErr
}

// mockTaskStore keeps tasks in memory and records every saved state.
type mockTaskStore struct {
	tasks  map[int64]*erpsync.Task
	nextID int64
	users  map[string]int64
	saved  []erpsync.Task

	// Save fails with saveErr once saveErrAfter saves succeeded.
	saveErrAfter int
	saveErr      error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: map[int64]*erpsync.Task{}, nextID: 100, users: map[string]int64{}}
}

func (s *mockTaskStore) Create(ctx context.Context, task *erpsync.Task) error {
	s.nextID++
	task.ID = s.nextID
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *mockTaskStore) Get(ctx context.Context, id int64) (*erpsync.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, erpsync.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *mockTaskStore) Save(ctx context.Context, task *erpsync.Task) error {
	if s.saveErr != nil && len(s.saved) >= s.saveErrAfter {
		return s.saveErr
	}
	cp := *task
	s.tasks[task.ID] = &cp
	s.saved = append(s.saved, cp)
	return nil
}

func (s *mockTaskStore) ResolveUser(ctx context.Context, username string) (int64, error) {
	id, ok := s.users[username]
	if !ok {
		return 0, fmt.Errorf("unknown user %q: %w", username, erpsync.ErrInvalidConfig)
	}
	return id, nil
}

func (s *mockTaskStore) last() erpsync.Task {
	return s.saved[len(s.saved)-1]
}

// recordingProgress captures reporter calls.
type recordingProgress struct {
	started  []string
	percents []int
	report   *erpsync.SyncReport
}

func (p *recordingProgress) EntityStarted(entity string, index, total int) {
	p.started = append(p.started, entity)
}

func (p *recordingProgress) EntityFinished(outcome erpsync.EntityOutcome, percent int) {
	p.percents = append(p.percents, percent)
}

func (p *recordingProgress) Finished(report *erpsync.SyncReport) {
	p.report = report
}
