package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/loader"
	"github.com/vvka-141/erpsync/internal/logging"
	testhelpers "github.com/vvka-141/erpsync/internal/testing"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

type sliceRows struct {
	rows [][]any
	pos  int
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

var passStart = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

// syncOnce reconciles rows of one entity type in its own committed transaction.
func syncOnce(t *testing.T, s *Store, name string, rows ...[]any) erpsync.SyncResult {
	t.Helper()
	ctx := context.Background()
	catalog := entity.FrePPLe()
	d, ok := catalog.Lookup(name)
	require.True(t, ok)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	resolvers, err := loader.LoadResolvers(ctx, tx, catalog, d)
	require.NoError(t, err)

	res, err := loader.New(logging.NewNullLogger(), 2).Sync(ctx, tx, d, &sliceRows{rows: rows}, resolvers, passStart)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return res
}

func TestStore_ItemsInsertUpdateIdempotent(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())

	res := syncOnce(t, s, "item",
		[]any{"A", nil, "old", nil},
		[]any{"B", nil, "second", nil},
		[]any{"C", nil, "third", nil},
	)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 3, testhelpers.CountRows(t, fdb.Pool, "item"))

	res = syncOnce(t, s, "item",
		[]any{"A", nil, "new", nil},
		[]any{"B", nil, "second", nil},
		[]any{"C", nil, "third", nil},
	)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Unchanged)

	var desc string
	require.NoError(t, fdb.Pool.QueryRow(context.Background(), "SELECT description FROM item WHERE name = 'A'").Scan(&desc))
	assert.Equal(t, "new", desc)
}

func TestStore_UnresolvedReferenceWritesNothing(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())

	res := syncOnce(t, s, "resource", []any{"R1", nil, nil, 1.0, "Nowhere", "default"})
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, testhelpers.CountRows(t, fdb.Pool, "resource"))
}

func TestStore_CompositeKeysRoundTrip(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	syncOnce(t, s, "calendar", []any{"holidays", 1.0})
	bucket := []any{"holidays", 0.0, start, start.AddDate(0, 0, 7), int64(10), int64(127), "00:00:00", "23:59:59"}

	first := syncOnce(t, s, "calendarbucket", bucket)
	assert.Equal(t, 1, first.Inserted)

	second := syncOnce(t, s, "calendarbucket", bucket)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Unchanged)
	assert.Equal(t, 1, testhelpers.CountRows(t, fdb.Pool, "calendarbucket"))
}

func TestStore_SubMicrosecondTimeKeyIsStable(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())

	syncOnce(t, s, "calendar", []any{"Shifts", 1.0})
	bucket := []any{"Shifts", 1.0, "2024-01-01 06:00:00.1234567", nil, int64(10), nil, nil, nil}

	assert.Equal(t, 1, syncOnce(t, s, "calendarbucket", bucket).Inserted)

	second := syncOnce(t, s, "calendarbucket", bucket)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Unchanged)
	assert.Equal(t, 1, testhelpers.CountRows(t, fdb.Pool, "calendarbucket"))
}

func TestStore_DurationsAndNumbersAreStable(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())

	syncOnce(t, s, "location", []any{"Plant", nil})
	syncOnce(t, s, "item", []any{"A", nil, nil, nil})
	op := []any{"OP", nil, nil, nil, "fixed_time", "A", "Plant", "01:30:00", int64(60)}

	assert.Equal(t, 1, syncOnce(t, s, "operation", op).Inserted)
	assert.Equal(t, 1, syncOnce(t, s, "operation", op).Unchanged)

	var duration time.Duration
	require.NoError(t, fdb.Pool.QueryRow(context.Background(),
		"SELECT extract(epoch from duration)::bigint * 1000000000 FROM operation WHERE name = 'OP'").Scan(&duration))
	assert.Equal(t, 90*time.Minute, duration)
}

func TestStore_RejectedRowRollsBackToSavepoint(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	syncOnce(t, s, "location", []any{"L", nil})
	syncOnce(t, s, "item", []any{"A", nil, nil, nil})

	res := syncOnce(t, s, "demand",
		[]any{"SO1", "A", "L", nil, "open", due, 10.0, nil, nil, nil, int64(1)},
		[]any{"SO2", "A", "L", nil, "open", due, -5.0, nil, nil, nil, int64(1)},
		[]any{"SO3", "A", "L", nil, "open", due, 7.0, nil, nil, nil, int64(1)},
	)

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.RowErrors, 1)
	assert.True(t, errors.Is(res.RowErrors[0], erpsync.ErrWrite))
	assert.Equal(t, 2, testhelpers.CountRows(t, fdb.Pool, "demand"))
}

func TestStore_InsertIgnoresExistingUniqueKey(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())
	ctx := context.Background()

	syncOnce(t, s, "location", []any{"L", nil})
	d := lookupDescriptor(t, "location")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	n, err := tx.InsertBatch(ctx, d, []entity.Record{
		{Key: entity.EncodeKey("L"), Values: []any{"L", "dup"}, LastModified: passStart},
		{Key: entity.EncodeKey("M"), Values: []any{"M", nil}, LastModified: passStart},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RollbackDiscardsEntityType(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())
	ctx := context.Background()
	d := lookupDescriptor(t, "location")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.InsertBatch(ctx, d, []entity.Record{{Values: []any{"L", nil}, LastModified: passStart}})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 0, testhelpers.CountRows(t, fdb.Pool, "location"))
}

func TestStore_Ping(t *testing.T) {
	fdb := testhelpers.NewFrePPLeDB(t)
	s := New(fdb.Pool, logging.NewNullLogger())
	require.NoError(t, s.Ping(context.Background()))
}

func lookupDescriptor(t *testing.T, name string) *entity.Descriptor {
	t.Helper()
	d, ok := entity.FrePPLe().Lookup(name)
	require.True(t, ok)
	return d
}
