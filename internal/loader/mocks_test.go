package loader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// sliceRows iterates over in-memory source rows.
type sliceRows struct {
	rows [][]any
	pos  int
	// valuesErr fails Values at this 1-based row.
	valuesErrAt int
	err         error
}

func newRows(rows ...[]any) *sliceRows {
	return &sliceRows{rows: rows}
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Values() ([]any, error) {
	if r.valuesErrAt == r.pos {
		return nil, errors.New("driver: bad connection")
	}
	return r.rows[r.pos-1], nil
}

func (r *sliceRows) Err() error { return r.err }

type fakeRow struct {
	values []any
}

// fakeWriter is an in-memory target keyed like the real tables.
type fakeWriter struct {
	mu     sync.Mutex
	tables map[string]map[string]*fakeRow // table -> encoded key -> row
	nextID int64
	ids    map[string]map[string]any // table -> key -> identity

	insertCalls [][]entity.Record
	updateCalls int

	// rejectKeys fails any insert or update touching these keys with ErrWrite.
	rejectKeys map[string]bool
	// raceKeys are inserted by "someone else" right before our insert runs.
	raceKeys map[string]bool

	loadErr   error
	insertErr error
	updateErr error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		tables:     map[string]map[string]*fakeRow{},
		ids:        map[string]map[string]any{},
		rejectKeys: map[string]bool{},
		raceKeys:   map[string]bool{},
	}
}

func (w *fakeWriter) seed(d *entity.Descriptor, values ...any) {
	key := d.KeyOf(values)
	w.put(d, key, values)
}

func (w *fakeWriter) put(d *entity.Descriptor, key string, values []any) {
	if w.tables[d.Table] == nil {
		w.tables[d.Table] = map[string]*fakeRow{}
		w.ids[d.Table] = map[string]any{}
	}
	w.tables[d.Table][key] = &fakeRow{values: append([]any(nil), values...)}

	if d.Identity == "id" {
		w.nextID++
		w.ids[d.Table][key] = w.nextID
	} else {
		w.ids[d.Table][key] = values[d.KeyIndexes()[0]]
	}
}

func (w *fakeWriter) row(d *entity.Descriptor, key ...any) *fakeRow {
	return w.tables[d.Table][entity.EncodeKey(key...)]
}

func (w *fakeWriter) count(d *entity.Descriptor) int {
	return len(w.tables[d.Table])
}

func (w *fakeWriter) LoadKeys(ctx context.Context, d *entity.Descriptor) (map[string]any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loadErr != nil {
		return nil, w.loadErr
	}
	keys := make(map[string]any, len(w.ids[d.Table]))
	for k, id := range w.ids[d.Table] {
		keys[k] = id
	}
	return keys, nil
}

func (w *fakeWriter) InsertBatch(ctx context.Context, d *entity.Descriptor, recs []entity.Record) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.insertCalls = append(w.insertCalls, recs)
	if w.insertErr != nil {
		return 0, w.insertErr
	}
	for _, r := range recs {
		if w.rejectKeys[r.Key] {
			return 0, fmt.Errorf("%w: check constraint violated for %s", erpsync.ErrWrite, entity.DisplayKey(r.Key))
		}
	}

	inserted := 0
	for _, r := range recs {
		if w.raceKeys[r.Key] {
			w.put(d, r.Key, r.Values)
			continue
		}
		if _, exists := w.tables[d.Table][r.Key]; exists {
			continue
		}
		w.put(d, r.Key, r.Values)
		inserted++
	}
	return inserted, nil
}

func (w *fakeWriter) Update(ctx context.Context, d *entity.Descriptor, identity any, rec entity.Record) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updateCalls++
	if w.updateErr != nil {
		return false, w.updateErr
	}
	if w.rejectKeys[rec.Key] {
		return false, fmt.Errorf("%w: value too long", erpsync.ErrWrite)
	}
	row, ok := w.tables[d.Table][rec.Key]
	if !ok || w.ids[d.Table][rec.Key] != identity {
		return false, fmt.Errorf("%w: no row with identity %v", erpsync.ErrWrite, identity)
	}
	if reflect.DeepEqual(row.values, rec.Values) {
		return false, nil
	}
	row.values = append([]any(nil), rec.Values...)
	return true, nil
}
