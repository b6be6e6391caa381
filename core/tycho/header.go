package tycho

import (
	"iter"
	"strconv"
)

// HeaderKey addresses a header entry either by its position on the first
// line or by the variable name of a header line.
type HeaderKey struct {
	Index int    // position on the first line, -1 for named entries
	Name  string // variable name, empty for positional entries
}

// PositionKey returns the key of the i-th first-line field.
func PositionKey(i int) HeaderKey {
	return HeaderKey{Index: i}
}

// NameKey returns the key of a named header variable.
func NameKey(name string) HeaderKey {
	return HeaderKey{Index: -1, Name: name}
}

// IsPosition reports whether the key addresses a first-line field.
func (k HeaderKey) IsPosition() bool {
	return k.Index >= 0
}

func (k HeaderKey) String() string {
	if k.IsPosition() {
		return strconv.Itoa(k.Index)
	}
	return k.Name
}

// Header holds the scalar metadata of a model file in file order. The first
// line's fields come first, keyed by position; header variables follow,
// keyed by name.
type Header struct {
	entries *OrderedMap[HeaderKey, Value]
}

func newHeader() *Header {
	return &Header{entries: NewOrderedMap[HeaderKey, Value]()}
}

// Set stores v under key and reports whether an earlier value was replaced.
// The decoder is the usual writer; Set is exported for rebuilding stored
// models.
func (h *Header) Set(key HeaderKey, v Value) bool {
	return h.entries.Set(key, v)
}

// Get returns the value under key.
func (h *Header) Get(key HeaderKey) (Value, bool) {
	return h.entries.Get(key)
}

// Name returns the header variable called name.
func (h *Header) Name(name string) (Value, bool) {
	return h.entries.Get(NameKey(name))
}

// Position returns the i-th field of the first line.
func (h *Header) Position(i int) (Value, bool) {
	return h.entries.Get(PositionKey(i))
}

// Keys returns all keys in file order.
func (h *Header) Keys() []HeaderKey {
	return h.entries.Keys()
}

// Len returns the number of entries.
func (h *Header) Len() int {
	return h.entries.Len()
}

// All iterates over the entries in file order.
func (h *Header) All() iter.Seq2[HeaderKey, Value] {
	return h.entries.All()
}

// FirstLine returns the positional first-line fields in order.
func (h *Header) FirstLine() []Value {
	var out []Value
	for k, v := range h.entries.All() {
		if k.IsPosition() {
			out = append(out, v)
		}
	}
	return out
}

// FirstNumeric returns up to n numeric first-line fields in order, skipping
// text fields such as the format marker and the file prefix. A negative n
// returns all of them.
func (h *Header) FirstNumeric(n int) []Value {
	var out []Value
	for _, v := range h.FirstLine() {
		if n >= 0 && len(out) == n {
			break
		}
		if v.IsNumeric() {
			out = append(out, v)
		}
	}
	return out
}
