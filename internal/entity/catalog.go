package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Catalog is an ordered set of entity types. Every reference points at an
// entity type earlier in the order.
type Catalog struct {
	entities []*Descriptor
	byName   map[string]*Descriptor
}

// NewCatalog builds and validates a catalog from descriptors in load order.
func NewCatalog(descs ...*Descriptor) (*Catalog, error) {
	c := &Catalog{
		entities: make([]*Descriptor, 0, len(descs)),
		byName:   make(map[string]*Descriptor, len(descs)),
	}
	for _, d := range descs {
		d.init()
		c.entities = append(c.entities, d)
		if _, dup := c.byName[d.Name]; !dup {
			c.byName[d.Name] = d
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog is NewCatalog for package-level catalogs.
func MustCatalog(descs ...*Descriptor) *Catalog {
	c, err := NewCatalog(descs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks every descriptor, rejects duplicate names, and requires
// each reference to target an earlier entity keyed by its identity column.
func (c *Catalog) Validate() error {
	var errs []error
	position := make(map[string]int, len(c.entities))

	for i, d := range c.entities {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
		if _, dup := position[d.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate entity %q", d.Name))
			continue
		}

		for _, f := range d.Fields {
			if f.Ref == "" {
				continue
			}
			at, ok := position[f.Ref]
			if !ok {
				errs = append(errs, fmt.Errorf("%s.%s references %q which is not loaded before it", d.Name, f.Name, f.Ref))
				continue
			}
			target := c.entities[at]
			if len(target.Key) != 1 {
				errs = append(errs, fmt.Errorf("%s.%s references %q which has a composite key", d.Name, f.Name, f.Ref))
				continue
			}
			if target.KeyFields()[0].Column != target.Identity {
				errs = append(errs, fmt.Errorf("%s.%s references %q whose key is not its identity", d.Name, f.Name, f.Ref))
			}
		}
		position[d.Name] = i
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
	}
	return nil
}

// Entities returns all entity types in load order.
func (c *Catalog) Entities() []*Descriptor {
	return slices.Clone(c.entities)
}

// Names returns all entity names in load order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entities))
	for i, d := range c.entities {
		names[i] = d.Name
	}
	return names
}

// Lookup finds an entity type by name.
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	d, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Select returns the entity types to load, in catalog order.
// An empty only list selects everything; disabled names are dropped.
// Query overrides replace the default query of the named entity type.
func (c *Catalog) Select(only, disabled []string, queries map[string]string) ([]*Descriptor, error) {
	var errs []error
	check := func(names []string) map[string]bool {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			d, ok := c.Lookup(n)
			if !ok {
				errs = append(errs, fmt.Errorf("%q: %w", n, erpsync.ErrUnknownEntity))
				continue
			}
			set[d.Name] = true
		}
		return set
	}

	onlySet := check(only)
	disabledSet := check(disabled)
	overrides := make(map[string]string, len(queries))
	for name, q := range queries {
		d, ok := c.Lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("query override %q: %w", name, erpsync.ErrUnknownEntity))
			continue
		}
		overrides[d.Name] = q
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var selected []*Descriptor
	for _, d := range c.entities {
		if len(onlySet) > 0 && !onlySet[d.Name] {
			continue
		}
		if disabledSet[d.Name] {
			continue
		}
		if q, ok := overrides[d.Name]; ok && strings.TrimSpace(q) != "" {
			d = d.WithQuery(q)
		}
		selected = append(selected, d)
	}
	return selected, nil
}
