package tycho

import (
	"fmt"
	"iter"
	"slices"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
)

// Fixed names for blocks that carry no label of their own.
const (
	FieldInitialComposition = "initial composition"
	FieldNZ                 = "nz"
	FieldNN                 = "nn"
	FieldIsotope            = "isotope"
)

// FieldType identifies the element type of a Field.
type FieldType int

const (
	// FieldFloat is a per-zone or per-isotope array of floats.
	FieldFloat FieldType = iota
	// FieldInt is an array of integers (proton/neutron numbers).
	FieldInt
	// FieldString is an array of names (isotopes).
	FieldString
)

func (t FieldType) String() string {
	switch t {
	case FieldFloat:
		return "float"
	case FieldInt:
		return "int"
	case FieldString:
		return "string"
	default:
		return "unknown"
	}
}

// Field is a homogeneous array stored in a Model. Only the slice matching
// Type is populated.
type Field struct {
	Type    FieldType `json:"type"`
	Floats  []float64 `json:"floats,omitempty"`
	Ints    []int64   `json:"ints,omitempty"`
	Strings []string  `json:"strings,omitempty"`
}

func (f Field) clone() Field {
	return Field{
		Type:    f.Type,
		Floats:  slices.Clone(f.Floats),
		Ints:    slices.Clone(f.Ints),
		Strings: slices.Clone(f.Strings),
	}
}

// FloatField wraps a float array.
func FloatField(v []float64) Field { return Field{Type: FieldFloat, Floats: v} }

// IntField wraps an integer array.
func IntField(v []int64) Field { return Field{Type: FieldInt, Ints: v} }

// StringField wraps a string array.
func StringField(v []string) Field { return Field{Type: FieldString, Strings: v} }

// Len returns the number of elements.
func (f Field) Len() int {
	switch f.Type {
	case FieldFloat:
		return len(f.Floats)
	case FieldInt:
		return len(f.Ints)
	default:
		return len(f.Strings)
	}
}

// Numbers returns the field as floats; int fields are converted.
func (f Field) Numbers() ([]float64, bool) {
	switch f.Type {
	case FieldFloat:
		return f.Floats, true
	case FieldInt:
		out := make([]float64, len(f.Ints))
		for i, v := range f.Ints {
			out[i] = float64(v)
		}
		return out, true
	default:
		return nil, false
	}
}

// Diagnostic is a non-fatal finding recorded while decoding.
type Diagnostic struct {
	Line    int    `json:"line"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Model is a decoded TYCHO model file: the header plus every labeled or
// fixed-name array, in file order. Field names are unique.
type Model struct {
	Filename    string
	SourceHash  string // BLAKE3 of the raw file contents
	Header      *Header
	Diagnostics []Diagnostic

	fields *OrderedMap[string, Field]
}

// NewModel returns an empty model with an empty header.
func NewModel(filename string) *Model {
	return &Model{
		Filename: filename,
		Header:   newHeader(),
		fields:   NewOrderedMap[string, Field](),
	}
}

// Clone returns a deep copy of m. Field arrays are copied as well, so
// edits to the clone never reach m.
func (m *Model) Clone() *Model {
	fields := NewOrderedMap[string, Field]()
	for name, f := range m.fields.All() {
		fields.Set(name, f.clone())
	}
	return &Model{
		Filename:    m.Filename,
		SourceHash:  m.SourceHash,
		Header:      &Header{entries: m.Header.entries.Clone()},
		Diagnostics: append([]Diagnostic(nil), m.Diagnostics...),
		fields:      fields,
	}
}

func (m *Model) String() string {
	return fmt.Sprintf("TychoModel(%q)", m.Filename)
}

// Add stores a new field. Adding a name that already exists is an error.
func (m *Model) Add(name string, f Field) error {
	if m.fields.Has(name) {
		return tyerrors.NewDuplicateField(name, 0)
	}
	m.fields.Set(name, f)
	return nil
}

// Get returns the field called name.
func (m *Model) Get(name string) (Field, bool) {
	return m.fields.Get(name)
}

// Has reports whether a field called name exists.
func (m *Model) Has(name string) bool {
	return m.fields.Has(name)
}

// Field returns the field called name or a NotFoundError.
func (m *Model) Field(name string) (Field, error) {
	f, ok := m.fields.Get(name)
	if !ok {
		return Field{}, tyerrors.NewNotFound("field", name)
	}
	return f, nil
}

// Floats returns a numeric field as floats.
func (m *Model) Floats(name string) ([]float64, error) {
	f, err := m.Field(name)
	if err != nil {
		return nil, err
	}
	v, ok := f.Numbers()
	if !ok {
		return nil, fmt.Errorf("field %q holds %s values, not numbers", name, f.Type)
	}
	return v, nil
}

// Isotopes returns the isotope names, or nil when the file has none.
func (m *Model) Isotopes() []string {
	f, ok := m.fields.Get(FieldIsotope)
	if !ok {
		return nil
	}
	return f.Strings
}

// Keys returns the field names in file order.
func (m *Model) Keys() []string {
	return m.fields.Keys()
}

// Len returns the number of fields.
func (m *Model) Len() int {
	return m.fields.Len()
}

// All iterates over the fields in file order.
func (m *Model) All() iter.Seq2[string, Field] {
	return m.fields.All()
}
