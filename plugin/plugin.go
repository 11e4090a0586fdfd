// Package plugin defines the custom serializer plugin collaborator spec.md
// §6 names: a per-class handler a caller can install to take over encoding,
// decoding, and instantiation of a type the default field-reader loop
// shouldn't touch directly (e.g. a type with unexported state, or one that
// needs a non-default construction path).
package plugin

import "reflect"

// WriteContext is the subset of writer behaviour a Serializer's WriteObject
// needs: writing a nested object and writing raw bytes already in the
// class's wire form. Defined here, implemented by package writer, to avoid
// an import cycle.
type WriteContext interface {
	WriteObject(value any) error
	WriteBytes(b []byte)
}

// ReadContext is the reader-side counterpart of WriteContext.
type ReadContext interface {
	ReadObject(target any) error
	ReadBytes(n int) ([]byte, error)
}

// Serializer is the five-capability interface spec.md §6 describes:
// writeObject, readObject, instantiate, alwaysCopy, and a cross-language
// flag.
type Serializer interface {
	// WriteObject writes value's body (not its tag) to w.
	WriteObject(w WriteContext, value any) error

	// ReadObject fills instance's body by reading from r.
	ReadObject(r ReadContext, instance any) error

	// Instantiate may produce a ready instance directly from the stream
	// position and class type, bypassing the default zero-value
	// constructor. Returning (nil, false) defers to the default.
	Instantiate(t reflect.Type, r ReadContext, streamPos int) (instance any, ok bool)

	// AlwaysCopy reports whether instances of this class should never be
	// registered in the object-reference registry (spec.md §4.4 step 3),
	// i.e. every occurrence is written and read as an independent copy.
	AlwaysCopy() bool

	// CrossLanguage reports whether this serializer participates in the
	// cross-language container binding (spec.md §4.9) instead of the
	// class-name registry's Go-specific naming.
	CrossLanguage() bool
}

// Table is the custom serializer plugin table spec.md §207 describes: a
// map of handlers keyed by class identity, with an optional delegate that
// translates classes it doesn't recognise to one it does (e.g. mapping an
// unregistered concrete type to a registered interface-like handler).
type Table struct {
	handlers map[reflect.Type]Serializer
	delegate func(t reflect.Type) (reflect.Type, bool)
}

// NewTable returns an empty plugin table.
func NewTable() *Table {
	return &Table{handlers: make(map[reflect.Type]Serializer)}
}

// Register installs a serializer for t, replacing any previous one.
func (tbl *Table) Register(t reflect.Type, s Serializer) {
	tbl.handlers[t] = s
}

// SetDelegate installs the unrecognised-class translator.
func (tbl *Table) SetDelegate(fn func(t reflect.Type) (reflect.Type, bool)) {
	tbl.delegate = fn
}

// Lookup returns the serializer registered for t, consulting the delegate
// on a miss.
func (tbl *Table) Lookup(t reflect.Type) (Serializer, bool) {
	if s, ok := tbl.handlers[t]; ok {
		return s, true
	}
	if tbl.delegate == nil {
		return nil, false
	}
	alias, ok := tbl.delegate(t)
	if !ok {
		return nil, false
	}
	s, ok := tbl.handlers[alias]

	return s, ok
}

// Clone returns a shallow copy sharing the same handler map entries but an
// independent map, so a per-Configuration table can be derived from a
// shared base table and extended without mutating the original.
func (tbl *Table) Clone() *Table {
	clone := &Table{
		handlers: make(map[reflect.Type]Serializer, len(tbl.handlers)),
		delegate: tbl.delegate,
	}
	for k, v := range tbl.handlers {
		clone.handlers[k] = v
	}

	return clone
}
