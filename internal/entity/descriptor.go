package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Kind is the target type of a field.
type Kind int

const (
	KindString   Kind = iota
	KindNumber        // float64
	KindInteger       // int64
	KindBool          // bool
	KindTime          // time.Time
	KindDuration      // time.Duration
	KindClock         // time of day, normalized to "15:04:05"
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindClock:
		return "clock"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one positional column of the source query.
type Field struct {
	// Name is the source label, also used in natural-key definitions.
	Name string
	// Column is the target column.
	Column   string
	Kind     Kind
	Required bool
	// Ref names the entity type this field references, empty for plain values.
	Ref string
}

// Descriptor describes how one entity type is extracted and written.
type Descriptor struct {
	Name  string
	Table string
	// Identity is the target column that identifies a row (name or id).
	Identity string
	// Key lists the field names forming the natural key, in order.
	Key    []string
	Fields []Field
	// Query is the default ERP query; its columns follow Fields, optionally
	// followed by a lastmodified column.
	Query string

	keyIdx []int
}

// Validate checks the descriptor for internal consistency.
func (d *Descriptor) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, errors.New("entity name is required"))
	}
	if d.Table == "" {
		errs = append(errs, fmt.Errorf("%s: table is required", d.Name))
	}
	if d.Identity == "" {
		errs = append(errs, fmt.Errorf("%s: identity column is required", d.Name))
	}
	if len(d.Fields) == 0 {
		errs = append(errs, fmt.Errorf("%s: at least one field is required", d.Name))
	}
	if len(d.Key) == 0 {
		errs = append(errs, fmt.Errorf("%s: natural key is required", d.Name))
	}

	seen := make(map[string]bool, len(d.Fields))
	columns := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" || f.Column == "" {
			errs = append(errs, fmt.Errorf("%s: field name and column are required", d.Name))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate field %q", d.Name, f.Name))
		}
		if columns[f.Column] || f.Column == erpsync.LastModifiedColumn {
			errs = append(errs, fmt.Errorf("%s: duplicate column %q", d.Name, f.Column))
		}
		seen[f.Name] = true
		columns[f.Column] = true
	}

	for _, k := range d.Key {
		if !seen[k] {
			errs = append(errs, fmt.Errorf("%s: key field %q is not a field", d.Name, k))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
	}
	return nil
}

// WithQuery returns a copy of the descriptor reading from another query.
func (d *Descriptor) WithQuery(query string) *Descriptor {
	c := *d
	c.Query = query
	return &c
}

// KeyIndexes returns the positions of the key fields within Fields.
func (d *Descriptor) KeyIndexes() []int {
	if d.keyIdx != nil {
		return d.keyIdx
	}
	idx := make([]int, 0, len(d.Key))
	for _, k := range d.Key {
		for i, f := range d.Fields {
			if f.Name == k {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

// KeyFields returns the key fields in key order.
func (d *Descriptor) KeyFields() []Field {
	idx := d.KeyIndexes()
	fields := make([]Field, len(idx))
	for i, j := range idx {
		fields[i] = d.Fields[j]
	}
	return fields
}

// IsKey reports whether the field at position i belongs to the natural key.
func (d *Descriptor) IsKey(i int) bool {
	for _, j := range d.KeyIndexes() {
		if i == j {
			return true
		}
	}
	return false
}

// Columns returns the target columns written for a record, lastmodified last.
func (d *Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.Fields)+1)
	for _, f := range d.Fields {
		cols = append(cols, f.Column)
	}
	return append(cols, erpsync.LastModifiedColumn)
}

// References returns the distinct entity names referenced by this descriptor.
func (d *Descriptor) References() []string {
	var refs []string
	for _, f := range d.Fields {
		if f.Ref == "" {
			continue
		}
		dup := false
		for _, r := range refs {
			if r == f.Ref {
				dup = true
				break
			}
		}
		if !dup {
			refs = append(refs, f.Ref)
		}
	}
	return refs
}

// String describes the descriptor for log lines.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(%s) -> %s", d.Name, strings.Join(d.Key, ", "), d.Table)
}

func (d *Descriptor) init() {
	d.keyIdx = nil
	d.keyIdx = d.KeyIndexes()
}
