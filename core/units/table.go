package units

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/core/tycho"
)

//go:embed units.hcl
var defaultTableSource []byte

// hclTableFile represents the top-level structure of a units file for decoding.
type hclTableFile struct {
	Quantities []*hclQuantity `hcl:"quantity,block"`
}

type hclQuantity struct {
	Name     string  `hcl:"name,label"`
	Unit     *string `hcl:"unit,optional"`
	Probable *string `hcl:"probable,optional"`
	Note     *string `hcl:"note,optional"`
}

// Entry is the units record of one quantity.
type Entry struct {
	Quantity string
	Unit     Unit // zero unless Certain
	Certain  bool
	Probable *Unit // best guess for uncertain entries, if any
	Note     string
}

// Table maps quantity names to units. A Table is read-only once built.
type Table struct {
	entries map[string]Entry
	order   []string
}

// ParseTable decodes a units table from HCL source.
func ParseTable(src []byte, filename string) (*Table, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse units file %s: %w", filename, diags)
	}

	var parsed hclTableFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode units file %s: %w", filename, diags)
	}

	t := &Table{entries: make(map[string]Entry, len(parsed.Quantities))}
	for _, q := range parsed.Quantities {
		if _, dup := t.entries[q.Name]; dup {
			return nil, fmt.Errorf("units file %s: quantity %q defined twice", filename, q.Name)
		}

		entry, err := newEntry(q)
		if err != nil {
			return nil, fmt.Errorf("units file %s: %w", filename, err)
		}
		t.entries[q.Name] = entry
		t.order = append(t.order, q.Name)
	}
	return t, nil
}

func newEntry(q *hclQuantity) (Entry, error) {
	entry := Entry{Quantity: q.Name}
	if q.Note != nil {
		entry.Note = *q.Note
	}

	if q.Unit != nil {
		u, err := Parse(*q.Unit)
		if err != nil {
			return Entry{}, fmt.Errorf("quantity %q: %w", q.Name, err)
		}
		entry.Unit = u
		entry.Certain = true
		return entry, nil
	}

	if q.Probable != nil {
		u, err := Parse(*q.Probable)
		if err != nil {
			return Entry{}, fmt.Errorf("quantity %q: %w", q.Name, err)
		}
		entry.Probable = &u
	}
	return entry, nil
}

// LoadTable reads a units table from an HCL file.
func LoadTable(path string) (*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, tyerrors.NewIO("read", path, err)
	}
	return ParseTable(src, path)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the built-in units table. It is loaded on first use.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := ParseTable(defaultTableSource, "units.hcl")
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Get returns the entry for quantity.
func (t *Table) Get(quantity string) (Entry, bool) {
	e, ok := t.entries[quantity]
	return e, ok
}

// Quantities returns the quantity names in file order.
func (t *Table) Quantities() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of quantities.
func (t *Table) Len() int {
	return len(t.order)
}

// Lookup returns the units of a field of m.
//
// The quantity must be a field of the model. Quantities listed in the table
// return their unit; uncertain ones return the probable unit, if any, with a
// UnitsError. Quantities missing from the table are dimensionless when they
// name one of the model's isotopes (mass fractions and Ye).
func (t *Table) Lookup(m *tycho.Model, quantity string) (Unit, error) {
	if !m.Has(quantity) {
		return Unit{}, tyerrors.NewNotFound("field", quantity)
	}

	entry, ok := t.entries[quantity]
	if !ok {
		for _, iso := range m.Isotopes() {
			if iso == quantity {
				return Dimensionless, nil
			}
		}
		return Unit{}, tyerrors.NewNotFound("units for quantity", quantity)
	}

	if !entry.Certain {
		var probable Unit
		if entry.Probable != nil {
			probable = *entry.Probable
		}
		return probable, &tyerrors.UnitsError{Quantity: quantity, Note: entry.Note}
	}
	return entry.Unit, nil
}

// Lookup returns the units of a field of m from the default table.
func Lookup(m *tycho.Model, quantity string) (Unit, error) {
	return Default().Lookup(m, quantity)
}
