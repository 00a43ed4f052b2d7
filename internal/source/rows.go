package source

import (
	"context"
	"database/sql"

	"golang.org/x/time/rate"
)

// Rows iterates a query result positionally.
type Rows struct {
	ctx     context.Context
	rows    *sql.Rows
	columns []string
	limiter *rate.Limiter

	values  []any
	ptrs    []any
	scanErr error
	err     error
}

func newRows(ctx context.Context, rows *sql.Rows, columns []string, limiter *rate.Limiter) *Rows {
	r := &Rows{
		ctx:     ctx,
		rows:    rows,
		columns: columns,
		limiter: limiter,
		values:  make([]any, len(columns)),
		ptrs:    make([]any, len(columns)),
	}
	for i := range r.values {
		r.ptrs[i] = &r.values[i]
	}
	return r
}

// Columns returns the column labels of the result.
func (r *Rows) Columns() []string {
	return r.columns
}

// Next advances to the next row, waiting on the rate limiter if configured.
func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(r.ctx); err != nil {
			r.err = err
			return false
		}
	}
	for i := range r.values {
		r.values[i] = nil
	}
	r.scanErr = r.rows.Scan(r.ptrs...)
	return true
}

// Values returns a copy of the current row.
//
// Columns are scanned into *any, which stores the driver value unconverted.
// A malformed value therefore reaches entity.Convert and is counted as a row
// conversion error. An error here means the result set itself is broken
// (closed rows, driver failure) and no later row can be trusted.
func (r *Rows) Values() ([]any, error) {
	if r.scanErr != nil {
		return nil, r.scanErr
	}
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out, nil
}

// Err returns the error that ended the iteration, if any.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Close releases the result set.
func (r *Rows) Close() error {
	return r.rows.Close()
}
