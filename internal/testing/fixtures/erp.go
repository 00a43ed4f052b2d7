package fixtures

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "modernc.org/sqlite" // SQLite driver
)

// ERPBuilder provides a fluent API for building SQLite ERP databases that
// expose the frePPLe views.
//
// Example usage:
//
//	path := fixtures.NewERPBuilder().
//	    AddView("uTN_V_Frepple_LocationData", []string{"name", "description", "lastmodified"},
//	        []any{"Plant", "Main plant", nil}).
//	    Build(t)
type ERPBuilder struct {
	views map[string]erpView
}

type erpView struct {
	columns []string
	rows    [][]any
}

// NewERPBuilder creates an empty ERP.
func NewERPBuilder() *ERPBuilder {
	return &ERPBuilder{views: map[string]erpView{}}
}

// AddView adds a view backed by a table holding rows.
// Calling it again for the same view appends rows.
func (b *ERPBuilder) AddView(name string, columns []string, rows ...[]any) *ERPBuilder {
	v, ok := b.views[name]
	if !ok {
		v.columns = columns
	}
	v.rows = append(v.rows, rows...)
	b.views[name] = v
	return b
}

// Build writes the ERP to a temporary SQLite file and returns its path.
func (b *ERPBuilder) Build(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "erp.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open ERP fixture: %v", err)
	}
	defer db.Close()

	names := make([]string, 0, len(b.views))
	for name := range b.views {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		v := b.views[name]
		table := fmt.Sprintf("erp_%d", i)

		if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", table, quoteAll(v.columns))); err != nil {
			t.Fatalf("Failed to create %s: %v", table, err)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(v.columns)), ", ")
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders)
		for _, row := range v.rows {
			if _, err := db.Exec(insert, row...); err != nil {
				t.Fatalf("Failed to insert into %s: %v", name, err)
			}
		}
		view := fmt.Sprintf("CREATE VIEW %s AS SELECT %s FROM %s ORDER BY rowid", name, quoteAll(v.columns), table)
		if _, err := db.Exec(view); err != nil {
			t.Fatalf("Failed to create view %s: %v", name, err)
		}
	}
	return path
}

func quoteAll(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}
