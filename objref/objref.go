// Package objref implements the object-reference registry (spec.md §4.3):
// identity-preserving tracking of already-written objects, so two fields
// pointing at the same instance decode back to the same instance, and
// self-referential cycles close instead of recursing forever.
//
// The write side and read side track opposite directions of the same
// mapping, so they are modeled as two small types sharing this package
// rather than one generic bidirectional map: WriteRegistry keys by object
// identity and yields a stream position; ReadRegistry keys by stream
// position and yields the instance produced there.
package objref

import (
	"reflect"
)

// WriteRegistry maps an object's identity to the stream position at which
// its body began. Not safe for concurrent use; owned by a single Writer.
type WriteRegistry struct {
	positions map[uintptr]int
}

// NewWriteRegistry returns an empty write-side registry.
func NewWriteRegistry() *WriteRegistry {
	return &WriteRegistry{positions: make(map[uintptr]int)}
}

// Reset discards all tracked identities, for reuse across streams.
func (r *WriteRegistry) Reset() {
	clear(r.positions)
}

// Identity returns the pointer-identity key for v, and whether v is a kind
// that can carry identity at all (pointer, map, chan, func, or a non-nil
// interface wrapping one, or a slice's backing array). Value-typed structs,
// arrays, and primitives have no identity key: a field or class marked
// flat (spec.md glossary) skips registration entirely and never calls this.
func Identity(v reflect.Value) (uintptr, bool) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func:
		if v.IsNil() {
			return 0, false
		}

		return v.Pointer(), true
	case reflect.Slice:
		if v.IsNil() {
			return 0, false
		}

		return v.Pointer(), true
	default:
		return 0, false
	}
}

// Lookup returns the stream position obj was previously registered at.
func (r *WriteRegistry) Lookup(obj reflect.Value) (pos int, ok bool) {
	key, identifiable := Identity(obj)
	if !identifiable {
		return 0, false
	}
	pos, ok = r.positions[key]

	return pos, ok
}

// Register records obj as first written at pos. Called before the body is
// written so a self-reference inside the body resolves to the same
// position (spec.md §4.3).
func (r *WriteRegistry) Register(obj reflect.Value, pos int) {
	key, identifiable := Identity(obj)
	if !identifiable {
		return
	}
	r.positions[key] = pos
}

// ReadRegistry maps a stream position to the instance produced there.
// Not safe for concurrent use; owned by a single Reader.
type ReadRegistry struct {
	instances map[int]any
}

// NewReadRegistry returns an empty read-side registry.
func NewReadRegistry() *ReadRegistry {
	return &ReadRegistry{instances: make(map[int]any)}
}

// Reset discards all tracked positions, for reuse across streams.
func (r *ReadRegistry) Reset() {
	clear(r.instances)
}

// Register associates pos with instance, called after instantiation but
// before the field-fill step (spec.md §4.5 step 3), so that references
// inside the body to this same position resolve to the in-progress
// instance rather than failing to find it.
func (r *ReadRegistry) Register(pos int, instance any) {
	r.instances[pos] = instance
}

// Resolve returns the instance registered at pos, for a HANDLE tag.
func (r *ReadRegistry) Resolve(pos int) (any, bool) {
	v, ok := r.instances[pos]

	return v, ok
}

// Replace implements read-resolve (spec.md §4.3): when an instance's class
// provides a read-resolve hook that returns a substitute, the position
// that previously pointed at old now points at replacement, so later
// HANDLE tags referencing pos resolve to the substitute instead.
func (r *ReadRegistry) Replace(pos int, replacement any) {
	r.instances[pos] = replacement
}
