package store

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// keyExpr renders a key column so that the scanned value encodes like the
// converted source value of the same kind.
func keyExpr(f entity.Field) string {
	col := ident(f.Column)
	switch f.Kind {
	case entity.KindNumber:
		return col + "::float8"
	case entity.KindInteger:
		return col + "::bigint"
	case entity.KindBool:
		return col + "::boolean"
	case entity.KindTime:
		return col + "::timestamptz"
	case entity.KindDuration:
		return "extract(epoch from " + col + ")::float8"
	case entity.KindClock:
		return "to_char(" + col + ", 'HH24:MI:SS')"
	default:
		return col + "::text"
	}
}

// snapshotSQL selects the identity followed by the key columns.
func snapshotSQL(d *entity.Descriptor) string {
	exprs := []string{ident(d.Identity)}
	for _, f := range d.KeyFields() {
		exprs = append(exprs, keyExpr(f))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), ident(d.Table))
}

// insertSQL builds a multi-row insert that ignores rows conflicting with an
// existing unique key.
func insertSQL(d *entity.Descriptor, rows int) string {
	cols := d.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", ident(d.Table), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT DO NOTHING")
	return b.String()
}

func insertArgs(recs []entity.Record) []any {
	if len(recs) == 0 {
		return nil
	}
	args := make([]any, 0, len(recs)*(len(recs[0].Values)+1))
	for _, r := range recs {
		args = append(args, r.Values...)
		args = append(args, r.LastModified)
	}
	return args
}

// updateSQL overwrites the payload of one row and only touches it when a
// payload column differs, so RowsAffected reports real changes.
// lastmodified is written but not compared.
func updateSQL(d *entity.Descriptor) string {
	var sets, diffs []string
	n := 1
	for _, f := range d.Fields {
		if f.Column == d.Identity {
			continue
		}
		col := ident(f.Column)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		diffs = append(diffs, fmt.Sprintf("%s IS DISTINCT FROM $%d", col, n))
		n++
	}
	sets = append(sets, fmt.Sprintf("%s = $%d", ident(erpsync.LastModifiedColumn), n))
	n++

	where := fmt.Sprintf("%s = $%d", ident(d.Identity), n)
	if len(diffs) == 0 {
		return fmt.Sprintf("UPDATE %s SET %s WHERE %s AND false", ident(d.Table), strings.Join(sets, ", "), where)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s AND (%s)",
		ident(d.Table), strings.Join(sets, ", "), where, strings.Join(diffs, " OR "))
}

func updateArgs(d *entity.Descriptor, identity any, rec entity.Record) []any {
	args := make([]any, 0, len(d.Fields)+2)
	for i, f := range d.Fields {
		if f.Column == d.Identity {
			continue
		}
		args = append(args, rec.Values[i])
	}
	return append(args, rec.LastModified, identity)
}
