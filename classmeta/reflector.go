package classmeta

import (
	"reflect"

	"github.com/arloliu/objectwire/plugin"
)

// Reflector is the "class reflector" collaborator spec.md §6 names: it
// derives a class's ordered field list and compatibility metadata from a
// runtime type. The spec leaves its implementation out of scope; this
// package supplies DefaultReflector, a concrete reflect-based one, because
// a working module needs a real default the way encoding/gob supplies its
// own type analysis rather than demanding callers bring one.
type Reflector interface {
	// Fields returns t's field descriptors in build order (not yet
	// canonically sorted; ClassDescriptor construction sorts them).
	Fields(t reflect.Type) ([]*FieldDescriptor, error)

	// Externalizable reports whether t supplies its own full-object wire
	// form via an ExternalWrite/ExternalRead pair, bypassing the
	// field-reader loop entirely.
	Externalizable(t reflect.Type) bool

	// ReadResolveHook returns t's read-resolve hook, if it declares one
	// by implementing interface{ ReadResolve() any }.
	ReadResolveHook(t reflect.Type) func(instance any) (any, bool)

	// CompatInfo returns t's compatible-mode levels (spec.md §4.7), or nil
	// if t doesn't opt in. Go has no superclass chain to walk, so
	// DefaultReflector never returns more than the one level
	// t's own hooks describe.
	CompatInfo(t reflect.Type) []CompatLevel
}

// DefaultReflector walks exported struct fields with reflect and honors
// `objectwire:"..."` struct tags for the per-field flag set. A field tagged
// `objectwire:"-"` is skipped entirely.
type DefaultReflector struct{}

// Fields implements Reflector.
func (DefaultReflector) Fields(t reflect.Type) ([]*FieldDescriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}

	descs := make([]*FieldDescriptor, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // unexported, no accessor
		}

		tag := parseTag(sf.Tag.Get("objectwire"))
		if tag["-"] {
			continue
		}

		descs = append(descs, fieldDescriptorOf(sf, tag))
	}

	return descs, nil
}

func fieldDescriptorOf(sf reflect.StructField, tag map[string]bool) *FieldDescriptor {
	ft := sf.Type
	isArray := ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array

	elem := ft
	if isArray {
		elem = ft.Elem()
	}

	kind := builtinKind(elem)
	if kind == KindShort && tag[tagChar] {
		kind = KindChar
	}

	// Value-typed (non-pointer) struct/array fields can never alias
	// another field's memory in Go, so they are always flat: the writer
	// never needs to register or look up a HANDLE for them.
	flat := tag["flat"]
	if !isArray && ft.Kind() == reflect.Struct {
		flat = true
	}

	return &FieldDescriptor{
		Name:  sf.Name,
		Type:  ft,
		Kind:  kindForField(isArray, kind),
		Index: sf.Index,
		Flags: FieldFlags{
			Array:       isArray,
			Flat:        flat,
			Plain:       tag["plain"],
			Conditional: tag["conditional"],
			Compressed:  tag["compressed"],
			Thin:        tag["thin"],
		},
	}
}

// kindForField reports KindReference for array fields regardless of
// element kind: the array's own wire form (spec.md §4.6) is chosen by the
// writer from the element type, not modeled as an inline integral kind at
// the field-descriptor level.
func kindForField(isArray bool, elemKind FieldKind) FieldKind {
	if isArray {
		return KindReference
	}

	return elemKind
}

// ExternalWriter is the interface a type implements to take over writing
// its own wire form entirely, bypassing the field-reader loop. w is the
// same WriteContext a custom serializer plugin receives.
type ExternalWriter interface {
	WriteExternal(w plugin.WriteContext) error
}

// ExternalReader is ExternalWriter's read-side counterpart.
type ExternalReader interface {
	ReadExternal(r plugin.ReadContext) error
}

// Externalizable implements Reflector: t is externalizable if it (or its
// pointer type) implements both ExternalWriter and ExternalReader.
func (DefaultReflector) Externalizable(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	writer := t.Implements(reflect.TypeFor[ExternalWriter]()) || pt.Implements(reflect.TypeFor[ExternalWriter]())
	reader := pt.Implements(reflect.TypeFor[ExternalReader]())

	return writer && reader
}

// CompatibleWriter is implemented by a type that takes over compatible
// mode's write side (spec.md §4.7), writing its own named field set
// through a CompatWriter instead of the default canonical field loop.
type CompatibleWriter interface {
	WriteCompat(w CompatWriter) error
}

// CompatibleReader is CompatibleWriter's read-side counterpart.
type CompatibleReader interface {
	ReadCompat(r CompatReader) error
}

// CompatInfo implements Reflector: t opts into compatible mode by
// implementing CompatibleWriter and/or CompatibleReader on its pointer
// type, the same auto-detected-interface idiom as ExternalWriter/
// ExternalReader and resolvable below, rather than an explicit
// registration call.
func (DefaultReflector) CompatInfo(t reflect.Type) []CompatLevel {
	pt := reflect.PointerTo(t)
	canWrite := pt.Implements(reflect.TypeFor[CompatibleWriter]())
	canRead := pt.Implements(reflect.TypeFor[CompatibleReader]())
	if !canWrite && !canRead {
		return nil
	}

	level := CompatLevel{Fields: nil, Symmetric: canWrite && canRead}
	if canWrite {
		level.WriteHook = func(w CompatWriter, instance any) error {
			return instance.(CompatibleWriter).WriteCompat(w)
		}
	}
	if canRead {
		level.ReadHook = func(r CompatReader, instance any) error {
			return instance.(CompatibleReader).ReadCompat(r)
		}
	}

	return []CompatLevel{level}
}

// resolvable is the interface a type implements to rewrite the instance
// read-resolve produces, e.g. to intern it or substitute a singleton.
type resolvable interface {
	ReadResolve() any
}

// ReadResolveHook implements Reflector.
func (DefaultReflector) ReadResolveHook(t reflect.Type) func(instance any) (any, bool) {
	pt := reflect.PointerTo(t)
	if !pt.Implements(reflect.TypeFor[resolvable]()) {
		return nil
	}

	return func(instance any) (any, bool) {
		r, ok := instance.(resolvable)
		if !ok {
			return instance, false
		}

		return r.ReadResolve(), true
	}
}
